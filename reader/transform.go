package reader

import "scflow/models"

// AdjustTickPrices multiplies every price by the contract's adjustment
// factor, in place. Files store prices in display format; the factor maps
// them to real values.
func AdjustTickPrices(recs []models.TickRecord, factor float64) {
	if factor == 1 {
		return
	}
	for i := range recs {
		recs[i].Price *= factor
	}
}

// AdjustDepthPrices multiplies every price by the contract's adjustment
// factor, in place.
func AdjustDepthPrices(recs []models.DepthRecord, factor float64) {
	if factor == 1 {
		return
	}
	for i := range recs {
		recs[i].Price *= factor
	}
}
