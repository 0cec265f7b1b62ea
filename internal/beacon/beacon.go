// Package beacon tracks nearby game beacons: it turns raw RSSI readings into
// smoothed distance estimates, keeps them in a concurrency-safe registry and
// drives the advertising/scanning lifecycle of the local radio.
package beacon

import (
	"fmt"
	"time"
)

// Proximity is the coarse distance class of a beacon.
type Proximity int

const (
	ProximityUnknown Proximity = iota
	ProximityImmediate
	ProximityNear
	ProximityFar
)

func (p Proximity) String() string {
	switch p {
	case ProximityImmediate:
		return "Immediate"
	case ProximityNear:
		return "Near"
	case ProximityFar:
		return "Far"
	default:
		return "Unknown"
	}
}

// Identity is the (UUID, major, minor) triple a beacon advertises.
// The game uses one UUID per session, major as the session id and minor as
// the player id.
type Identity struct {
	UUID  string
	Major uint16
	Minor uint16
}

// Key is the registry lookup key within a single UUID scope.
type Key struct {
	Major uint16
	Minor uint16
}

// Key returns the (major, minor) pair of the identity.
func (id Identity) Key() Key {
	return Key{Major: id.Major, Minor: id.Minor}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s:%d.%d", id.UUID, id.Major, id.Minor)
}

// Sample is a single observation delivered by the radio. It is never mutated.
type Sample struct {
	Identity   Identity
	RSSI       int // dBm
	ObservedAt time.Time
}

// State is the registry's view of one beacon.
type State struct {
	Identity  Identity
	Distance  float64 // Smoothed distance in meters, UnknownDistance when unavailable
	Proximity Proximity
	RSSI      int // Most recent raw reading
	LastSeen  time.Time
}

// Known reports whether the state carries a usable distance.
func (s State) Known() bool {
	return s.Proximity != ProximityUnknown && s.Distance >= 0
}

// Nearby is the game-facing summary of a live beacon.
type Nearby struct {
	Major     uint16
	Minor     uint16
	Distance  float64
	Proximity Proximity
	RSSI      int
}

// Detection is what the radio reports for each scan callback.
type Detection struct {
	Identity Identity
	RSSI     int
	TxPower  int // Calibrated RSSI at 1m, 0 when the frame carries none
	At       time.Time
}

// AdvertisingConfig describes what this device broadcasts.
type AdvertisingConfig struct {
	UUID  string
	Major uint16
	Minor uint16
}

// NewAdvertisingConfig validates and canonicalizes an advertising config.
// Major and minor must fit in 16 bits.
func NewAdvertisingConfig(uuid string, major, minor int) (AdvertisingConfig, error) {
	canonical, err := ParseUUID(uuid)
	if err != nil {
		return AdvertisingConfig{}, err
	}
	if major < 0 || major > 0xFFFF {
		return AdvertisingConfig{}, fmt.Errorf("%w: major %d out of range", ErrInvalidConfig, major)
	}
	if minor < 0 || minor > 0xFFFF {
		return AdvertisingConfig{}, fmt.Errorf("%w: minor %d out of range", ErrInvalidConfig, minor)
	}
	return AdvertisingConfig{UUID: canonical, Major: uint16(major), Minor: uint16(minor)}, nil
}

// Validate checks a config that was built by hand rather than through
// NewAdvertisingConfig.
func (c AdvertisingConfig) Validate() error {
	_, err := ParseUUID(c.UUID)
	return err
}

// Identity returns the beacon identity this config advertises.
func (c AdvertisingConfig) Identity() Identity {
	return Identity{UUID: c.UUID, Major: c.Major, Minor: c.Minor}
}
