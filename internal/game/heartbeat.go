package game

import (
	"fmt"
	"math"
	"time"
)

// Level is the heartbeat band for the current oni distance.
type Level int

const (
	LevelNone Level = iota
	LevelFar
	LevelMid
	LevelNear
)

func (l Level) String() string {
	switch l {
	case LevelFar:
		return "far"
	case LevelMid:
		return "mid"
	case LevelNear:
		return "near"
	default:
		return "none"
	}
}

// Beat intervals per band.
const (
	ExtremeInterval = 200 * time.Millisecond
	NearInterval    = 400 * time.Millisecond
	MidInterval     = 800 * time.Millisecond
	FarInterval     = 1200 * time.Millisecond
)

// extremeFloor is the minimum intensity inside the extreme radius.
const extremeFloor = 0.9

// HeartbeatThresholds are upper band edges in meters, all inclusive.
type HeartbeatThresholds struct {
	Extreme float64
	Near    float64
	Mid     float64
	Far     float64
}

// DefaultHeartbeatThresholds returns the standard 0.5/10/30/50m bands.
func DefaultHeartbeatThresholds() HeartbeatThresholds {
	return HeartbeatThresholds{Extreme: 0.5, Near: 10, Mid: 30, Far: 50}
}

// Beat describes how the heartbeat should play.
type Beat struct {
	Level     Level
	Extreme   bool
	Interval  time.Duration // 0 when silent
	Intensity float64       // 0..1
}

func (b Beat) String() string {
	if b.Level == LevelNone {
		return "silent"
	}
	s := fmt.Sprintf("%s every %v at %.0f%%", b.Level, b.Interval, b.Intensity*100)
	if b.Extreme {
		s += " (extreme)"
	}
	return s
}

// Heartbeat maps a distance to the oni onto a Beat. A negative or NaN
// distance means the oni is not heard and yields silence.
func (t HeartbeatThresholds) Heartbeat(distance float64) Beat {
	if distance < 0 || math.IsNaN(distance) {
		return Beat{}
	}

	var b Beat
	var norm float64
	switch {
	case distance <= t.Extreme:
		b = Beat{Level: LevelNear, Extreme: true, Interval: ExtremeInterval}
		norm = 1
	case distance <= t.Near:
		b = Beat{Level: LevelNear, Interval: NearInterval}
		norm = 1 - distance/t.Near
	case distance <= t.Mid:
		b = Beat{Level: LevelMid, Interval: MidInterval}
		norm = 1 - (distance-t.Near)/(t.Mid-t.Near)
	case distance <= t.Far:
		b = Beat{Level: LevelFar, Interval: FarInterval}
		norm = 1 - (distance-t.Mid)/(t.Far-t.Mid)
	default:
		return Beat{}
	}

	b.Intensity = math.Max(0, math.Min(1, norm))
	if b.Extreme {
		b.Intensity = math.Max(b.Intensity, extremeFloor)
	}
	return b
}
