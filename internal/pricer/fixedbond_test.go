package pricer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twg-quant/riskbatch/internal/domain"
)

func flatSnapshot(rate float64) domain.MarketSnapshotPayload {
	return domain.MarketSnapshotPayload{
		RatesCurves: map[string]domain.RateCurve{
			"USD": {Name: "USD", Nodes: []float64{rate, rate, rate, rate}},
		},
		SpreadCurves: map[string]domain.RateCurve{},
		FXSpots:      map[string]domain.FXSpot{},
	}
}

func TestPriceFixedBond_PV(t *testing.T) {
	position := domain.Position{
		PositionID:  "pos-1",
		ProductType: domain.ProductFixedBond,
		Instrument: domain.Instrument{
			Currency:     "USD",
			Notional:     1_000_000,
			CouponRate:   0.05,
			MaturityYrs:  2,
			PaymentsYear: 2,
		},
	}
	snap := flatSnapshot(0.05)

	out, err := PriceFixedBond(position, position.Instrument, snap, []string{domain.MeasurePV}, domain.ScenarioBase)
	require.NoError(t, err)

	// Par bond priced at its own coupon rate should be close to par.
	assert.InDelta(t, 1_000_000, out[domain.MeasurePV], 5000)
	_, hasDV01 := out[domain.MeasureDV01]
	assert.False(t, hasDV01, "DV01 must not appear unless requested")
}

func TestPriceFixedBond_DV01Positive(t *testing.T) {
	position := domain.Position{
		ProductType: domain.ProductFixedBond,
		Instrument: domain.Instrument{
			Currency:     "USD",
			Notional:     1_000_000,
			CouponRate:   0.05,
			MaturityYrs:  5,
			PaymentsYear: 2,
		},
	}
	snap := flatSnapshot(0.05)

	out, err := PriceFixedBond(position, position.Instrument, snap, []string{domain.MeasurePV, domain.MeasureDV01}, domain.ScenarioBase)
	require.NoError(t, err)

	assert.Greater(t, out[domain.MeasureDV01], 0.0, "DV01 is the PV drop per basis point; positive when a rate rise lowers PV")
}

func TestPriceFixedBond_FXDeltaZero(t *testing.T) {
	position := domain.Position{
		ProductType: domain.ProductFixedBond,
		Instrument: domain.Instrument{
			Currency:     "USD",
			Notional:     1_000_000,
			CouponRate:   0.05,
			MaturityYrs:  1,
			PaymentsYear: 2,
		},
	}
	snap := flatSnapshot(0.05)
	snap.FXSpots["USDJPY"] = domain.FXSpot{Pair: "USDJPY", Spot: 150}

	out, err := PriceFixedBond(position, position.Instrument, snap, []string{domain.MeasureFXDelta}, domain.ScenarioBase)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out[domain.MeasureFXDelta], "USD bond PV does not depend on an FX spot")
}

func TestPriceFixedBond_ExactRequestedKeys(t *testing.T) {
	position := domain.Position{
		ProductType: domain.ProductFixedBond,
		Instrument: domain.Instrument{
			Currency: "USD", Notional: 100, CouponRate: 0.03, MaturityYrs: 1, PaymentsYear: 1,
		},
	}
	snap := flatSnapshot(0.03)
	measures := []string{domain.MeasurePV, domain.MeasureAccruedInterest}

	out, err := PriceFixedBond(position, position.Instrument, snap, measures, domain.ScenarioBase)
	require.NoError(t, err)
	assert.Len(t, out, len(measures))
}
