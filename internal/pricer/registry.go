// Package pricer implements the pluggable pricing dispatch contract of spec
// §4.4: a registry mapping product_type to a pure pricing function, plus
// the required FX_FWD, AMORT_LOAN and FIXED_BOND pricers. Grounded on the
// teacher's pkg/util calculation idiom (small, pure, float/big-number
// functions with one test file per concern) generalized from AMM sizing
// math to discounted-cashflow valuation math.
package pricer

import (
	"fmt"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// Fn is the uniform pricer signature (spec §4.4): a pure function that
// honors the requested measures list exactly — no extra keys.
type Fn func(position domain.Position, instrument domain.Instrument, snapshot domain.MarketSnapshotPayload, measures []string, scenarioID string) (map[string]float64, error)

// Registry maps product_type (uppercase) to a Fn. Registration happens
// once at process startup via Bootstrap; there is no import-time
// side-effecting registration, per spec §4.4.
type Registry struct {
	pricers map[string]Fn
}

// NewRegistry returns an empty registry. Use Bootstrap for the standard
// set of required pricers.
func NewRegistry() *Registry {
	return &Registry{pricers: make(map[string]Fn)}
}

// Register adds or replaces the pricer for productType.
func (r *Registry) Register(productType string, fn Fn) {
	r.pricers[productType] = fn
}

// Dispatch looks up the pricer for position.ProductType. An unknown product
// type is a Fatal, non-retryable error (spec §4.4 "Dispatch failure is a
// terminal task failure (DEAD), not retryable").
func (r *Registry) Dispatch(productType string) (Fn, error) {
	fn, ok := r.pricers[productType]
	if !ok {
		return nil, apperr.Fatal(fmt.Sprintf("no pricer registered for product type %q", productType), nil)
	}
	return fn, nil
}

// Bootstrap registers the spec's required initial pricers: FX_FWD,
// AMORT_LOAN, FIXED_BOND.
func Bootstrap() *Registry {
	r := NewRegistry()
	r.Register(domain.ProductFixedBond, PriceFixedBond)
	r.Register(domain.ProductAmortLoan, PriceAmortLoan)
	r.Register(domain.ProductFXForward, PriceFXForward)
	return r
}

// filterMeasures keeps only the requested keys, dropping anything a pricer
// computed but was not asked for. Enforces "produce exactly the requested
// keys, compute nothing more" even if an individual pricer is lazily
// over-generous internally.
func filterMeasures(all map[string]float64, requested []string) map[string]float64 {
	out := make(map[string]float64, len(requested))
	for _, m := range requested {
		out[m] = all[m] // zero value if the pricer didn't produce it
	}
	return out
}

// requestedSet turns a measures slice into a set for O(1) membership
// checks inside pricers.
func requestedSet(measures []string) map[string]bool {
	set := make(map[string]bool, len(measures))
	for _, m := range measures {
		set[m] = true
	}
	return set
}
