package rate

import "time"

// DefaultMaxAge is how long a successful refresh keeps the cached tables usable.
const DefaultMaxAge = 30 * time.Minute

type StalenessPolicy struct {
	MaxAge time.Duration
}

func NewStalenessPolicy(maxAge time.Duration) StalenessPolicy {
	return StalenessPolicy{MaxAge: maxAge}
}

// IsStale reports whether data refreshed at lastRefresh must be refreshed at now.
// Data that was never refreshed is stale. Exactly MaxAge old is still fresh.
func (p StalenessPolicy) IsStale(lastRefresh *time.Time, now time.Time) bool {
	if lastRefresh == nil {
		return true
	}
	elapsed := now.Sub(*lastRefresh)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return elapsed > p.maxAge()
}

func (p StalenessPolicy) maxAge() time.Duration {
	if p.MaxAge <= 0 {
		return DefaultMaxAge
	}
	return p.MaxAge
}
