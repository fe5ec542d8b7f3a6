// Package pricing supplies the discount and headroom assumptions the
// recommendation pipeline runs on. The numbers are heuristic constants,
// not derived models; they are injected so deployments can tune them
// without touching the analysis code.
package pricing

// Assumptions holds the pricing heuristics for one provider.
type Assumptions struct {
	// ReservedDiscount is the assumed flat discount for committed capacity.
	ReservedDiscount float64

	// SpotDiscount is the assumed discount for interruptible capacity.
	SpotDiscount float64

	// HeadroomTarget is the peak utilization a resized resource should
	// stay at or below.
	HeadroomTarget float64

	// HoursPerMonth converts usage hours to commitment quantity.
	HoursPerMonth float64
}

// DefaultAssumptions returns the stock heuristics.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		ReservedDiscount: 0.4,
		SpotDiscount:     0.7,
		HeadroomTarget:   0.8,
		HoursPerMonth:    730,
	}
}

// Provider resolves assumptions per cloud provider.
type Provider interface {
	Assumptions(provider string) Assumptions
	Name() string
}

// StaticProvider serves one assumption set with optional per-provider
// overrides.
type StaticProvider struct {
	defaults  Assumptions
	overrides map[string]Assumptions
}

// NewStaticProvider creates a provider serving the given defaults.
func NewStaticProvider(defaults Assumptions) *StaticProvider {
	return &StaticProvider{
		defaults:  defaults,
		overrides: make(map[string]Assumptions),
	}
}

// Override pins assumptions for one provider name.
func (p *StaticProvider) Override(provider string, a Assumptions) {
	p.overrides[provider] = a
}

// Assumptions returns the assumptions for a provider, falling back to
// the defaults.
func (p *StaticProvider) Assumptions(provider string) Assumptions {
	if a, ok := p.overrides[provider]; ok {
		return a
	}
	return p.defaults
}

// Name identifies the provider implementation.
func (p *StaticProvider) Name() string {
	return "static"
}
