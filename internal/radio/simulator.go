package radio

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"oni-radar.klederson.com/internal/beacon"
)

// SimulatorOptions configures the demo radio.
type SimulatorOptions struct {
	Session   uint16        // major of every simulated player
	KillerID  uint16        // minor of the oni
	Survivors []uint16      // minors of the onmyoji
	TxPower   int           // calibrated RSSI at 1m
	Interval  time.Duration // emit period
	Seed      uint64
}

// DefaultSimulatorOptions returns one oni (1000) and six survivors (1001-1006).
func DefaultSimulatorOptions() SimulatorOptions {
	return SimulatorOptions{
		Session:   1,
		KillerID:  1000,
		Survivors: []uint16{1001, 1002, 1003, 1004, 1005, 1006},
		TxPower:   -59,
		Interval:  200 * time.Millisecond,
		Seed:      uint64(time.Now().UnixNano()),
	}
}

type simPlayer struct {
	minor     uint16
	baseRSSI  float64
	phase     float64
	amplitude float64
	active    bool
}

// Simulator is a beacon.Radio that emits fake players with fluctuating RSSI.
// The local player (the minor being advertised) is never reported.
type Simulator struct {
	opts SimulatorOptions

	mu      sync.Mutex
	rng     *rand.Rand
	players []simPlayer
	adv     *beacon.AdvertisingConfig
	cancel  context.CancelFunc
	done    chan struct{}
	t       float64
}

// NewSimulator creates a simulator with randomized player placement.
func NewSimulator(opts SimulatorOptions) *Simulator {
	def := DefaultSimulatorOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.TxPower == 0 {
		opts.TxPower = def.TxPower
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	minors := append([]uint16{opts.KillerID}, opts.Survivors...)
	players := make([]simPlayer, len(minors))
	for i, m := range minors {
		players[i] = simPlayer{
			minor:     m,
			baseRSSI:  -50 - rng.Float64()*35, // -50 to -85 dBm
			phase:     rng.Float64() * 2 * math.Pi,
			amplitude: 2 + rng.Float64()*6,
			active:    true,
		}
	}
	return &Simulator{opts: opts, rng: rng, players: players}
}

func (s *Simulator) BeginAdvertising(cfg beacon.AdvertisingConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adv = &cfg
	return nil
}

func (s *Simulator) EndAdvertising() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adv = nil
	return nil
}

// Advertising returns what the simulator is currently "broadcasting".
func (s *Simulator) Advertising() (beacon.AdvertisingConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adv == nil {
		return beacon.AdvertisingConfig{}, false
	}
	return *s.adv, true
}

func (s *Simulator) BeginScanning(uuid string, fn beacon.DetectionFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, uuid, fn, s.done)
	return nil
}

func (s *Simulator) loop(ctx context.Context, uuid string, fn beacon.DetectionFunc, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, d := range s.Step(uuid, now) {
				fn(d)
			}
		}
	}
}

// Step advances the simulation by one interval and returns the detections
// for that tick.
func (s *Simulator) Step(uuid string, now time.Time) []beacon.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.t += s.opts.Interval.Seconds()
	var self *uint16
	if s.adv != nil && s.adv.Major == s.opts.Session {
		self = &s.adv.Minor
	}

	var out []beacon.Detection
	for i := range s.players {
		p := &s.players[i]

		// Players occasionally walk out of range and come back
		if s.rng.Float64() < 0.005 {
			p.active = !p.active
		}
		if !p.active || (self != nil && *self == p.minor) {
			continue
		}

		rssi := p.baseRSSI + p.amplitude*math.Sin(s.t*0.5+p.phase) + (s.rng.Float64()-0.5)*4
		if rssi > -30 {
			rssi = -30
		}
		out = append(out, beacon.Detection{
			Identity: beacon.Identity{UUID: uuid, Major: s.opts.Session, Minor: p.minor},
			RSSI:     int(rssi),
			TxPower:  s.opts.TxPower,
			At:       now,
		})
	}
	return out
}

func (s *Simulator) EndScanning() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

var _ beacon.Radio = (*Simulator)(nil)
