// README: In-process counters and moving-average latencies per classification tier.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// emaAlpha weights new samples in the exponential moving average.
const emaAlpha = 0.2

type Outcome string

const (
	OutcomeHit      Outcome = "hit"
	OutcomeMiss     Outcome = "miss"
	OutcomeError    Outcome = "error"
	OutcomeRejected Outcome = "rejected"
)

type tierKey struct {
	Tier    string
	Outcome Outcome
}

type tierStat struct {
	count     atomic.Int64
	emaMicros atomic.Int64 // EMA latency in microseconds
}

// Registry is the process-wide metrics sink. Created at startup, injected into
// components, never reset on production paths.
type Registry struct {
	mu    sync.RWMutex
	tiers map[tierKey]*tierStat

	Messages atomic.Int64
	Errors   atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{tiers: make(map[tierKey]*tierStat)}
}

// ObserveTier records one call for (tier, outcome) and folds its latency into
// the moving average.
func (r *Registry) ObserveTier(tier string, outcome Outcome, elapsed time.Duration) {
	st := r.stat(tierKey{Tier: tier, Outcome: outcome})
	st.count.Add(1)
	sample := elapsed.Microseconds()
	for {
		old := st.emaMicros.Load()
		var next int64
		if old == 0 {
			next = sample
		} else {
			next = int64(math.Round(float64(old)*(1-emaAlpha) + float64(sample)*emaAlpha))
		}
		if st.emaMicros.CompareAndSwap(old, next) {
			return
		}
	}
}

func (r *Registry) stat(k tierKey) *tierStat {
	r.mu.RLock()
	st, ok := r.tiers[k]
	r.mu.RUnlock()
	if ok {
		return st
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok = r.tiers[k]; ok {
		return st
	}
	st = &tierStat{}
	r.tiers[k] = st
	return st
}

// TierCount returns how many calls were recorded for (tier, outcome).
func (r *Registry) TierCount(tier string, outcome Outcome) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if st, ok := r.tiers[tierKey{Tier: tier, Outcome: outcome}]; ok {
		return st.count.Load()
	}
	return 0
}

// TierLatency returns the moving-average latency for (tier, outcome).
func (r *Registry) TierLatency(tier string, outcome Outcome) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if st, ok := r.tiers[tierKey{Tier: tier, Outcome: outcome}]; ok {
		return time.Duration(st.emaMicros.Load()) * time.Microsecond
	}
	return 0
}

// Snapshot returns counters keyed "tier/outcome" for diagnostics endpoints.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.tiers)+2)
	for k, st := range r.tiers {
		out[k.Tier+"/"+string(k.Outcome)] = st.count.Load()
	}
	out["messages"] = r.Messages.Load()
	out["errors"] = r.Errors.Load()
	return out
}
