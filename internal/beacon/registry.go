package beacon

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RegistryOptions configures smoothing and expiry.
type RegistryOptions struct {
	Expiry time.Duration    // entries older than this are not live
	Alpha  float64          // EMA weight of the newest estimate, (0, 1]
	Clock  func() time.Time // used by queries that take no explicit time
}

// DefaultRegistryOptions returns a 10s expiry window and alpha 0.3.
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{
		Expiry: 10 * time.Second,
		Alpha:  0.3,
		Clock:  time.Now,
	}
}

// Registry is a thread-safe store of detected beacons keyed by (major, minor).
//
// All mutation goes through Apply and Expire under mu. Queries take the read
// lock and return copies, so a partially updated State is never visible.
// The evaluation horizon only moves forward: once an entry has been judged
// expired at time t, a query with an earlier now cannot bring it back.
type Registry struct {
	opts RegistryOptions

	mu      sync.RWMutex
	beacons map[Key]*State

	clockMu sync.Mutex
	horizon time.Time
}

// NewRegistry creates an empty registry. Zero-valued options fall back to
// the defaults.
func NewRegistry(opts RegistryOptions) *Registry {
	def := DefaultRegistryOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = def.Alpha
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	return &Registry{
		opts:    opts,
		beacons: make(map[Key]*State),
	}
}

// Options returns the effective options.
func (r *Registry) Options() RegistryOptions {
	return r.opts
}

// Apply folds a sample into the registry. The distance is smoothed against
// the previous value with an EMA, and LastSeen only ever moves forward, so
// duplicate or out-of-order samples are applied but cannot rewind expiry.
//
// A reading without a usable estimate refreshes LastSeen but keeps the
// previous distance. Samples with no timestamp or UUID are dropped.
func (r *Registry) Apply(sample Sample, txPower int) error {
	if sample.Identity.UUID == "" || sample.ObservedAt.IsZero() {
		return fmt.Errorf("%w: %v", ErrMalformedSample, sample.Identity)
	}

	raw, _ := Estimate(sample.RSSI, txPower)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := sample.Identity.Key()
	existing, ok := r.beacons[key]
	if !ok {
		st := &State{
			Identity:  sample.Identity,
			Distance:  UnknownDistance,
			Proximity: ProximityUnknown,
			RSSI:      sample.RSSI,
			LastSeen:  sample.ObservedAt,
		}
		if raw >= 0 {
			st.Distance = raw
			st.Proximity = Classify(raw)
		}
		r.beacons[key] = st
		return nil
	}

	existing.Identity = sample.Identity
	if !sample.ObservedAt.Before(existing.LastSeen) {
		existing.LastSeen = sample.ObservedAt
		existing.RSSI = sample.RSSI
	}
	if raw < 0 {
		return nil
	}
	if existing.Distance < 0 {
		existing.Distance = raw
	} else {
		existing.Distance = r.opts.Alpha*raw + (1-r.opts.Alpha)*existing.Distance
	}
	existing.Proximity = Classify(existing.Distance)
	return nil
}

// evalTime advances the evaluation horizon to now and returns it.
func (r *Registry) evalTime(now time.Time) time.Time {
	r.clockMu.Lock()
	defer r.clockMu.Unlock()
	if now.After(r.horizon) {
		r.horizon = now
	}
	return r.horizon
}

func (r *Registry) live(st *State, now time.Time) bool {
	return now.Sub(st.LastSeen) <= r.opts.Expiry
}

// Lookup returns the live state for (major, minor), or ErrNotFound.
func (r *Registry) Lookup(major, minor uint16) (State, error) {
	now := r.evalTime(r.opts.Clock())

	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.beacons[Key{Major: major, Minor: minor}]
	if !ok || !r.live(st, now) {
		return State{}, fmt.Errorf("%w: %d.%d", ErrNotFound, major, minor)
	}
	return *st, nil
}

// DistanceTo returns the smoothed distance to a live beacon. The second
// result is false when the beacon was never seen, has expired, or has no
// usable distance yet.
func (r *Registry) DistanceTo(major, minor uint16) (float64, bool) {
	st, err := r.Lookup(major, minor)
	if err != nil || !st.Known() {
		return 0, false
	}
	return st.Distance, true
}

// ListLive returns copies of all entries seen within the expiry window of
// now, closest first. Entries without a distance sort last.
func (r *Registry) ListLive(now time.Time) []State {
	now = r.evalTime(now)

	r.mu.RLock()
	result := make([]State, 0, len(r.beacons))
	for _, st := range r.beacons {
		if r.live(st, now) {
			result = append(result, *st)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Known() != b.Known() {
			return a.Known()
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Identity.Major != b.Identity.Major {
			return a.Identity.Major < b.Identity.Major
		}
		return a.Identity.Minor < b.Identity.Minor
	})
	return result
}

// Expire removes entries not seen within the expiry window of now.
// Returns the number of removed entries.
func (r *Registry) Expire(now time.Time) int {
	now = r.evalTime(now)

	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key, st := range r.beacons {
		if !r.live(st, now) {
			delete(r.beacons, key)
			count++
		}
	}
	return count
}

// Len returns the number of stored entries, live or not yet swept.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.beacons)
}
