package repository

import (
	"context"

	"RegimeScan/internal/domain/models"
	domrepo "RegimeScan/internal/domain/repository"
	pkgkafka "RegimeScan/pkg/kafka"
)

// KafkaResultPublisher emits the full analysis result envelope to Kafka,
// keyed by series name so results for one series stay on one partition.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

func (p *KafkaResultPublisher) Publish(ctx context.Context, r *models.AnalysisResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Series), r)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
