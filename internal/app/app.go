// Package app hosts the beacon service in a headless Bubble Tea loop:
// periodic expiry, periodic game reports and an orderly radio shutdown.
package app

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"oni-radar.klederson.com/internal/beacon"
	"oni-radar.klederson.com/internal/game"
	"oni-radar.klederson.com/internal/validation"
)

// Options configures the host loop.
type Options struct {
	Advertise      bool
	Scan           bool
	Beacon         beacon.AdvertisingConfig
	Detector       game.Detector
	Heartbeat      game.HeartbeatThresholds
	EvictInterval  time.Duration
	ReportInterval time.Duration

	// Calibration, when set, grades every report's nearest player against
	// a known distance and quits once Duration has elapsed.
	Calibration *Calibration
}

// Calibration is a field check of the distance model.
type Calibration struct {
	Actual    float64 // meters
	Duration  time.Duration
	Validator *validation.Validator
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	service *beacon.Service
	log     *slog.Logger
	started time.Time
	err     error
}

// AppModel is the root Bubble Tea model. It renders nothing.
type AppModel struct {
	opts   Options
	shared *shared

	report game.Report
	beat   game.Beat
}

// New creates a new AppModel around svc. A nil logger uses slog.Default().
func New(svc *beacon.Service, opts Options, logger *slog.Logger) AppModel {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.EvictInterval <= 0 {
		opts.EvictInterval = 2 * time.Second
	}
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 500 * time.Millisecond
	}
	return AppModel{
		opts: opts,
		shared: &shared{
			service: svc,
			log:     logger,
		},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		evictCmd(m.opts.EvictInterval),
		reportCmd(m.opts.ReportInterval),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EvictMsg:
		m.shared.service.Expire(time.Time(msg))
		return m, evictCmd(m.opts.EvictInterval)

	case ReportMsg:
		return m.handleReport(time.Time(msg))

	case ScanErrorMsg:
		m.shared.log.Error("[GAME] radio failed", "error", msg.Err)
		m.shared.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m AppModel) handleReport(now time.Time) (tea.Model, tea.Cmd) {
	log := m.shared.log
	prev := m.beat

	m.report = m.opts.Detector.Evaluate(m.shared.service.GetNearbyBeacons())
	if d, ok := m.report.DistanceToKiller(); ok && !m.report.AmKiller() {
		m.beat = m.opts.Heartbeat.Heartbeat(d)
	} else {
		m.beat = game.Beat{}
	}

	if m.beat.Level != prev.Level || m.beat.Extreme != prev.Extreme {
		d, _ := m.report.DistanceToKiller()
		log.Info("[GAME] heartbeat", "beat", m.beat, "killer_distance", d)
	}
	if p, ok := m.report.Nearest(); ok {
		log.Debug("[GAME] report", "players", len(m.report.Players),
			"nearest", p.ID, "distance", p.Distance, "proximity", p.Proximity)
	}
	if m.report.AmKiller() {
		log.Debug("[GAME] survivors in range", "count", len(m.report.Survivors()))
	}

	if c := m.opts.Calibration; c != nil {
		if p, ok := m.report.Nearest(); ok {
			rec, err := c.Validator.Record(c.Actual, p.Distance, p.RSSI)
			if err != nil {
				log.Warn("[GAME] calibration sample rejected", "error", err)
			} else {
				log.Info("[GAME] calibration", "player", p.ID, "record", rec)
			}
		}
		if now.Sub(m.shared.started) >= c.Duration {
			return m, tea.Quit
		}
	}

	return m, reportCmd(m.opts.ReportInterval)
}

// View renders nothing; the loop runs without a renderer.
func (m AppModel) View() string {
	return ""
}

// Report returns the latest game evaluation.
func (m AppModel) Report() game.Report {
	return m.report
}

// Beat returns the latest heartbeat.
func (m AppModel) Beat() game.Beat {
	return m.beat
}

// Err returns the radio error that ended the loop, if any.
func (m AppModel) Err() error {
	return m.shared.err
}

// Start brings up advertising and scanning as configured. Must be called
// before p.Run().
func (m *AppModel) Start() error {
	m.shared.started = time.Now()
	svc := m.shared.service

	if m.opts.Advertise {
		if err := svc.StartAdvertising(m.opts.Beacon); err != nil {
			return err
		}
	}
	if m.opts.Scan {
		if err := svc.StartScanning(m.opts.Beacon.UUID); err != nil {
			_ = svc.StopAdvertising()
			return err
		}
	}
	return nil
}

// Stop shuts both radio axes down.
func (m *AppModel) Stop() error {
	return m.shared.service.Close()
}

func evictCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return EvictMsg(t)
	})
}

func reportCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return ReportMsg(t)
	})
}
