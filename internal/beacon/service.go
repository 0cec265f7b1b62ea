package beacon

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// LinkState is the state of one radio axis (advertising or scanning).
type LinkState int

const (
	Stopped LinkState = iota
	Starting
	Active
)

func (s LinkState) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Active:
		return "Active"
	default:
		return "Stopped"
	}
}

// Service is the facade the radio adapter and game logic talk to. It owns
// the advertising and scanning state machines and feeds detections into the
// registry while scanning is active.
//
// Transitions on each axis are serialized by their own op mutex, held across
// the radio call. mu guards the state fields; detections hold its read lock
// while they are applied, so once StopScanning returns no further detection
// reaches the registry.
type Service struct {
	radio    Radio
	registry *Registry
	log      *slog.Logger

	advOp  sync.Mutex
	scanOp sync.Mutex

	mu        sync.RWMutex
	advState  LinkState
	advConfig AdvertisingConfig
	scanState LinkState
	scanUUID  string
}

// NewService wires a radio to a registry. A nil logger uses slog.Default().
func NewService(radio Radio, registry *Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		radio:    radio,
		registry: registry,
		log:      logger,
	}
}

// Registry returns the underlying registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// StartAdvertising broadcasts cfg. If a different config is already active
// it is torn down first, so two identities are never advertised at once.
// Starting the same config again is a no-op.
func (s *Service) StartAdvertising(cfg AdvertisingConfig) error {
	canonical, err := ParseUUID(cfg.UUID)
	if err != nil {
		return err
	}
	cfg.UUID = canonical

	s.advOp.Lock()
	defer s.advOp.Unlock()

	s.mu.Lock()
	prevState, prev := s.advState, s.advConfig
	if prevState == Active && prev == cfg {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if prevState != Stopped {
		if err := s.radio.EndAdvertising(); err != nil {
			rerr := NewRadioError("end advertising", err)
			s.log.Warn("[BEACON] failed to replace advertisement", "previous", prev.Identity(), "error", rerr)
			return rerr
		}
		s.setAdvertising(Stopped, AdvertisingConfig{})
	}

	s.setAdvertising(Starting, cfg)
	if err := s.radio.BeginAdvertising(cfg); err != nil {
		s.setAdvertising(Stopped, AdvertisingConfig{})
		rerr := NewRadioError("begin advertising", err)
		s.log.Error("[BEACON] advertising failed", "beacon", cfg.Identity(), "error", rerr)
		return rerr
	}
	s.setAdvertising(Active, cfg)
	s.log.Info("[BEACON] advertising", "beacon", cfg.Identity())
	return nil
}

// StopAdvertising stops broadcasting. It is idempotent when already stopped.
// The state is Stopped afterwards even if the radio reports an error.
func (s *Service) StopAdvertising() error {
	s.advOp.Lock()
	defer s.advOp.Unlock()

	s.mu.Lock()
	if s.advState == Stopped {
		s.mu.Unlock()
		return nil
	}
	s.advState = Stopped
	s.advConfig = AdvertisingConfig{}
	s.mu.Unlock()

	if err := s.radio.EndAdvertising(); err != nil {
		rerr := NewRadioError("end advertising", err)
		s.log.Warn("[BEACON] stop advertising", "error", rerr)
		return rerr
	}
	s.log.Info("[BEACON] advertising stopped")
	return nil
}

func (s *Service) setAdvertising(state LinkState, cfg AdvertisingConfig) {
	s.mu.Lock()
	s.advState = state
	s.advConfig = cfg
	s.mu.Unlock()
}

// StartScanning begins feeding detections for the uuid scope into the
// registry. Restarting with another scope ends the current scan first.
func (s *Service) StartScanning(uuid string) error {
	canonical, err := ParseUUID(uuid)
	if err != nil {
		return err
	}

	s.scanOp.Lock()
	defer s.scanOp.Unlock()

	s.mu.Lock()
	prevState, prevUUID := s.scanState, s.scanUUID
	if prevState == Active && prevUUID == canonical {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if prevState != Stopped {
		s.setScanning(Stopped, "")
		if err := s.radio.EndScanning(); err != nil {
			rerr := NewRadioError("end scanning", err)
			s.log.Warn("[BEACON] failed to restart scan", "error", rerr)
			return rerr
		}
	}

	s.setScanning(Starting, canonical)
	if err := s.radio.BeginScanning(canonical, s.HandleDetection); err != nil {
		s.setScanning(Stopped, "")
		rerr := NewRadioError("begin scanning", err)
		s.log.Error("[BEACON] scanning failed", "uuid", canonical, "error", rerr)
		return rerr
	}
	s.setScanning(Active, canonical)
	s.log.Info("[BEACON] scanning", "uuid", canonical)
	return nil
}

// StopScanning stops feeding the registry. Existing entries are kept until
// they expire. Idempotent when already stopped.
func (s *Service) StopScanning() error {
	s.scanOp.Lock()
	defer s.scanOp.Unlock()

	s.mu.Lock()
	if s.scanState == Stopped {
		s.mu.Unlock()
		return nil
	}
	s.scanState = Stopped
	s.scanUUID = ""
	s.mu.Unlock()

	if err := s.radio.EndScanning(); err != nil {
		rerr := NewRadioError("end scanning", err)
		s.log.Warn("[BEACON] stop scanning", "error", rerr)
		return rerr
	}
	s.log.Info("[BEACON] scanning stopped")
	return nil
}

func (s *Service) setScanning(state LinkState, uuid string) {
	s.mu.Lock()
	s.scanState = state
	s.scanUUID = uuid
	s.mu.Unlock()
}

// Close stops both axes and returns the first error.
func (s *Service) Close() error {
	return errors.Join(s.StopScanning(), s.StopAdvertising())
}

// AdvertisingState returns the advertising axis state.
func (s *Service) AdvertisingState() LinkState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.advState
}

// Advertising returns the active advertisement, if any.
func (s *Service) Advertising() (AdvertisingConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.advConfig, s.advState == Active
}

// ScanningState returns the scanning axis state.
func (s *Service) ScanningState() LinkState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanState
}

// HandleDetection is the DetectionFunc passed to the radio.
func (s *Service) HandleDetection(d Detection) {
	s.OnDetected(d.Identity, d.RSSI, d.TxPower, d.At)
}

// OnDetected applies one scan callback. Detections outside the scanning
// scope, or arriving while scanning is stopped, are dropped.
func (s *Service) OnDetected(id Identity, rssi, txPower int, at time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.scanState == Stopped {
		return
	}
	if !SameUUID(id.UUID, s.scanUUID) {
		s.log.Debug("[BEACON] detection outside scope dropped", "beacon", id)
		return
	}
	id.UUID = s.scanUUID

	sample := Sample{Identity: id, RSSI: rssi, ObservedAt: at}
	if err := s.registry.Apply(sample, txPower); err != nil {
		s.log.Debug("[BEACON] sample dropped", "error", err)
	}
}

// Expire sweeps stale entries from the registry.
func (s *Service) Expire(now time.Time) int {
	n := s.registry.Expire(now)
	if n > 0 {
		s.log.Debug("[BEACON] expired beacons", "count", n)
	}
	return n
}

// GetDistanceToBeacon returns the smoothed distance to a live beacon, or
// UnknownDistance when it is not found, expired or has no estimate yet.
func (s *Service) GetDistanceToBeacon(major, minor uint16) float64 {
	d, ok := s.registry.DistanceTo(major, minor)
	if !ok {
		return UnknownDistance
	}
	return d
}

// GetNearbyBeacons lists live beacons, closest first.
func (s *Service) GetNearbyBeacons() []Nearby {
	states := s.registry.ListLive(s.registry.opts.Clock())
	result := make([]Nearby, 0, len(states))
	for _, st := range states {
		result = append(result, Nearby{
			Major:     st.Identity.Major,
			Minor:     st.Identity.Minor,
			Distance:  st.Distance,
			Proximity: st.Proximity,
			RSSI:      st.RSSI,
		})
	}
	return result
}
