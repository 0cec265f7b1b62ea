package app_test

import (
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"oni-radar.klederson.com/internal/app"
	"oni-radar.klederson.com/internal/beacon"
	"oni-radar.klederson.com/internal/game"
	"oni-radar.klederson.com/internal/validation"
	"oni-radar.klederson.com/mocks"
)

const gameUUID = "550e8400-e29b-41d4-a716-446655440000"

var _ = Describe("AppModel", func() {
	var (
		ctrl    *gomock.Controller
		radio   *mocks.Radio
		service *beacon.Service
		now     time.Time
		opts    app.Options
		logger  *slog.Logger
	)

	player := func(minor uint16) beacon.Identity {
		return beacon.Identity{UUID: gameUUID, Major: 1, Minor: minor}
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		DeferCleanup(ctrl.Finish)
		radio = mocks.NewRadio(ctrl)
		logger = slog.New(slog.NewTextHandler(GinkgoWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))

		now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		regOpts := beacon.DefaultRegistryOptions()
		regOpts.Clock = func() time.Time { return now }
		service = beacon.NewService(radio, beacon.NewRegistry(regOpts), logger)

		adv, err := beacon.NewAdvertisingConfig(gameUUID, 1, 1001)
		Expect(err).NotTo(HaveOccurred())
		opts = app.Options{
			Advertise:      true,
			Scan:           true,
			Beacon:         adv,
			Detector:       game.Detector{Session: 1, MyID: 1001, KillerID: 1000, MaxRange: 100},
			Heartbeat:      game.DefaultHeartbeatThresholds(),
			EvictInterval:  time.Second,
			ReportInterval: time.Second,
		}
	})

	expectStart := func() {
		radio.EXPECT().BeginAdvertising(opts.Beacon).Return(nil)
		radio.EXPECT().BeginScanning(gameUUID, gomock.Any()).Return(nil)
	}

	It("schedules the first ticks", func() {
		Expect(app.New(service, opts, logger).Init()).NotTo(BeNil())
	})

	Describe("Start", func() {
		It("advertises and scans", func() {
			expectStart()
			m := app.New(service, opts, logger)
			Expect(m.Start()).To(Succeed())
			Expect(service.AdvertisingState()).To(Equal(beacon.Active))
			Expect(service.ScanningState()).To(Equal(beacon.Active))
		})

		It("withdraws the advertisement when scanning fails", func() {
			radio.EXPECT().BeginAdvertising(opts.Beacon).Return(nil)
			radio.EXPECT().BeginScanning(gameUUID, gomock.Any()).Return(errors.New("adapter gone"))
			radio.EXPECT().EndAdvertising().Return(nil)

			m := app.New(service, opts, logger)
			err := m.Start()
			Expect(errors.Is(err, beacon.ErrHardwareUnavailable)).To(BeTrue())
			Expect(service.AdvertisingState()).To(Equal(beacon.Stopped))
		})

		It("honors disabled axes", func() {
			opts.Advertise = false
			radio.EXPECT().BeginScanning(gameUUID, gomock.Any()).Return(nil)
			m := app.New(service, opts, logger)
			Expect(m.Start()).To(Succeed())
			Expect(service.AdvertisingState()).To(Equal(beacon.Stopped))
		})
	})

	Describe("Update", func() {
		var m app.AppModel

		BeforeEach(func() {
			expectStart()
			m = app.New(service, opts, logger)
			Expect(m.Start()).To(Succeed())
		})

		update := func(msg tea.Msg) tea.Cmd {
			next, cmd := m.Update(msg)
			m = next.(app.AppModel)
			return cmd
		}

		It("beats when the killer is near", func() {
			service.OnDetected(player(1000), -59, -59, now)
			service.OnDetected(player(1003), -80, -59, now)

			cmd := update(app.ReportMsg(now))
			Expect(cmd).NotTo(BeNil())

			d, ok := m.Report().DistanceToKiller()
			Expect(ok).To(BeTrue())
			Expect(d).To(BeNumerically("~", 1.0, 0.05))
			Expect(m.Beat().Level).To(Equal(game.LevelNear))
			Expect(m.Beat().Interval).To(Equal(game.NearInterval))

			p, ok := m.Report().Nearest()
			Expect(ok).To(BeTrue())
			Expect(p.ID).To(Equal(uint16(1000)))
		})

		It("stays silent without a killer", func() {
			service.OnDetected(player(1002), -60, -59, now)
			update(app.ReportMsg(now))
			Expect(m.Beat().Level).To(Equal(game.LevelNone))
			Expect(m.Report().Players).To(HaveLen(1))
		})

		It("expires stale beacons on evict ticks", func() {
			service.OnDetected(player(1000), -59, -59, now)
			cmd := update(app.EvictMsg(now.Add(11 * time.Second)))
			Expect(cmd).NotTo(BeNil())
			Expect(service.Registry().Len()).To(BeZero())
		})

		It("quits on a radio error", func() {
			cmd := update(app.ScanErrorMsg{Err: beacon.ErrHardwareUnavailable})
			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(tea.QuitMsg{}))
			Expect(m.Err()).To(MatchError(beacon.ErrHardwareUnavailable))
		})

		It("ignores unrelated messages", func() {
			Expect(update(tea.WindowSizeMsg{Width: 80, Height: 24})).To(BeNil())
			Expect(m.View()).To(BeEmpty())
		})
	})

	Describe("calibration", func() {
		It("records the nearest player and quits when done", func() {
			v := validation.New(validation.DefaultOptions())
			opts.Calibration = &app.Calibration{Actual: 1, Duration: 0, Validator: v}
			expectStart()
			m := app.New(service, opts, logger)
			Expect(m.Start()).To(Succeed())

			service.OnDetected(player(1002), -59, -59, now)
			_, cmd := m.Update(app.ReportMsg(time.Now().Add(time.Second)))
			Expect(cmd()).To(Equal(tea.QuitMsg{}))

			recs := v.Records()
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].RSSI).To(Equal(-59))
			Expect(recs[0].Accuracy).To(Equal(validation.Excellent))
		})
	})

	It("stops both axes", func() {
		expectStart()
		radio.EXPECT().EndAdvertising().Return(nil)
		radio.EXPECT().EndScanning().Return(nil)

		m := app.New(service, opts, logger)
		Expect(m.Start()).To(Succeed())
		Expect(m.Stop()).To(Succeed())
		Expect(service.ScanningState()).To(Equal(beacon.Stopped))
	})
})
