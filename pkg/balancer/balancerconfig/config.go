// Package balancerconfig holds the tunable knobs of one balance
// invocation: step budget, deadline, and per-cost-function weights.
package balancerconfig

import (
	"time"

	"github.com/lifeqiuzhi520/rebalance/pkg/balancer/cost"
)

// Config bundles every overridable knob from spec.md §6. The zero value
// is not useful; construct with DefaultConfig and layer Options on top.
type Config struct {
	MaxSteps                 int
	StepsPerRegion           int
	MaxRunningTime           time.Duration
	NumRegionLoadsToRemember int
	MinCostNeedBalance       float64
	MaxMovePercent           float64
	MaxTableSkewWeight       float64
	MinServerBalance         int
	CostWeights              cost.Weights
}

// DefaultConfig returns the configuration defaults from spec.md §6.
func DefaultConfig() Config {
	return Config{
		MaxSteps:                 1_000_000,
		StepsPerRegion:           800,
		MaxRunningTime:           30 * time.Second,
		NumRegionLoadsToRemember: 15,
		MinCostNeedBalance:       0.05,
		MaxMovePercent:           0.25,
		MaxTableSkewWeight:       0.0,
		MinServerBalance:         3,
		CostWeights:              cost.DefaultWeights(),
	}
}

// Option mutates a Config in place; NewConfig applies a base of
// DefaultConfig followed by every supplied Option, in order.
type Option func(*Config)

// NewConfig builds a Config starting from DefaultConfig and applying opts
// in order.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithMaxSteps overrides MaxSteps.
func WithMaxSteps(n int) Option { return func(c *Config) { c.MaxSteps = n } }

// WithStepsPerRegion overrides StepsPerRegion.
func WithStepsPerRegion(n int) Option { return func(c *Config) { c.StepsPerRegion = n } }

// WithMaxRunningTime overrides MaxRunningTime.
func WithMaxRunningTime(d time.Duration) Option { return func(c *Config) { c.MaxRunningTime = d } }

// WithNumRegionLoadsToRemember overrides NumRegionLoadsToRemember.
func WithNumRegionLoadsToRemember(n int) Option {
	return func(c *Config) { c.NumRegionLoadsToRemember = n }
}

// WithMinCostNeedBalance overrides MinCostNeedBalance.
func WithMinCostNeedBalance(v float64) Option {
	return func(c *Config) { c.MinCostNeedBalance = v }
}

// WithMaxMovePercent overrides MaxMovePercent.
func WithMaxMovePercent(v float64) Option { return func(c *Config) { c.MaxMovePercent = v } }

// WithMaxTableSkewWeight overrides MaxTableSkewWeight.
func WithMaxTableSkewWeight(v float64) Option {
	return func(c *Config) { c.MaxTableSkewWeight = v }
}

// WithMinServerBalance overrides MinServerBalance, the smallest cluster
// size the balancer will act on.
func WithMinServerBalance(n int) Option { return func(c *Config) { c.MinServerBalance = n } }

// WithCostWeights overrides the whole per-function weight set.
func WithCostWeights(w cost.Weights) Option { return func(c *Config) { c.CostWeights = w } }

// MaxMoves returns the move cap derived from MaxMovePercent for a
// cluster with numRegions regions: max(numRegions * MaxMovePercent, 600).
func (c Config) MaxMoves(numRegions int) int {
	byPercent := int(float64(numRegions) * c.MaxMovePercent)
	if byPercent < 600 {
		return 600
	}
	return byPercent
}
