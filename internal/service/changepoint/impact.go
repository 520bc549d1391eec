package changepoint

import "RegimeScan/internal/domain/models"

// QuantifyImpacts computes the economic delta between each adjacent regime
// pair: percentage change in mean price level and in volatility. It is a
// pure function of the summaries — no smoothing, no statistical testing.
// Fewer than two regimes yields an empty result.
func QuantifyImpacts(regimes []models.RegimeSummary) []models.ImpactRecord {
	if len(regimes) < 2 {
		return []models.ImpactRecord{}
	}
	impacts := make([]models.ImpactRecord, 0, len(regimes)-1)
	for i := 0; i < len(regimes)-1; i++ {
		from, to := regimes[i], regimes[i+1]
		impacts = append(impacts, models.ImpactRecord{
			FromRegime:          from.Regime,
			ToRegime:            to.Regime,
			TransitionDate:      to.StartDate,
			PricePctChange:      (to.MeanPrice - from.MeanPrice) / from.MeanPrice * 100,
			VolatilityPctChange: (to.Volatility - from.Volatility) / from.Volatility * 100,
			LowConfidence:       from.LowConfidence || to.LowConfidence,
		})
	}
	return impacts
}
