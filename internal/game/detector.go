// Package game turns beacon proximity into oni-vs-onmyoji game state:
// who is near, how far the oni is, and how hard the heartbeat should pound.
package game

import (
	"sort"

	"oni-radar.klederson.com/internal/beacon"
)

// Player is another participant heard on air. Its ID is the beacon minor.
type Player struct {
	ID        uint16
	Distance  float64
	Proximity beacon.Proximity
	RSSI      int
	Killer    bool
}

// Detector filters nearby beacons into players for one local participant.
type Detector struct {
	Session  uint16 // beacon major; 0 accepts any session
	MyID     uint16 // own beacon minor
	KillerID uint16
	MaxRange float64 // meters; players beyond are ignored
}

// AmKiller reports whether the local participant is the oni.
func (d Detector) AmKiller() bool {
	return d.MyID == d.KillerID
}

// Evaluate builds a Report from a nearby-beacon snapshot. Beacons with no
// usable distance, from another session, or beyond MaxRange are skipped,
// as is our own minor.
func (d Detector) Evaluate(nearby []beacon.Nearby) Report {
	r := Report{amKiller: d.AmKiller()}
	for _, nb := range nearby {
		if nb.Proximity == beacon.ProximityUnknown || nb.Distance < 0 {
			continue
		}
		if d.Session != 0 && nb.Major != d.Session {
			continue
		}
		if nb.Minor == d.MyID || nb.Distance > d.MaxRange {
			continue
		}
		p := Player{
			ID:        nb.Minor,
			Distance:  nb.Distance,
			Proximity: nb.Proximity,
			RSSI:      nb.RSSI,
			Killer:    nb.Minor == d.KillerID,
		}
		r.Players = append(r.Players, p)
		if p.Killer && !r.killerFound {
			r.killerFound = true
			r.killerDistance = p.Distance
		}
	}
	sort.SliceStable(r.Players, func(i, j int) bool {
		if r.Players[i].Distance != r.Players[j].Distance {
			return r.Players[i].Distance < r.Players[j].Distance
		}
		return r.Players[i].ID < r.Players[j].ID
	})
	return r
}

// Report is one evaluation of the surrounding players, closest first.
type Report struct {
	Players []Player

	amKiller       bool
	killerFound    bool
	killerDistance float64
}

// AmKiller reports whether the report was built for the oni.
func (r Report) AmKiller() bool {
	return r.amKiller
}

// DistanceToKiller returns the oni's distance. The oni is always at
// distance 0 from itself.
func (r Report) DistanceToKiller() (float64, bool) {
	if r.amKiller {
		return 0, true
	}
	if !r.killerFound {
		return 0, false
	}
	return r.killerDistance, true
}

// Nearest returns the closest player.
func (r Report) Nearest() (Player, bool) {
	if len(r.Players) == 0 {
		return Player{}, false
	}
	return r.Players[0], true
}

// InRange returns players within rangeM meters, closest first.
func (r Report) InRange(rangeM float64) []Player {
	var out []Player
	for _, p := range r.Players {
		if p.Distance <= rangeM {
			out = append(out, p)
		}
	}
	return out
}

// Survivors lists the onmyoji the oni can hear. It is empty for anyone
// but the oni.
func (r Report) Survivors() []Player {
	if !r.amKiller {
		return nil
	}
	var out []Player
	for _, p := range r.Players {
		if !p.Killer {
			out = append(out, p)
		}
	}
	return out
}
