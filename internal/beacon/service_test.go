package beacon_test

import (
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"oni-radar.klederson.com/internal/beacon"
	"oni-radar.klederson.com/mocks"
)

const gameUUID = "550e8400-e29b-41d4-a716-446655440000"

var _ = Describe("Service", func() {
	var (
		ctrl    *gomock.Controller
		radio   *mocks.Radio
		service *beacon.Service
		now     time.Time
	)

	advertise := func(major, minor uint16) beacon.AdvertisingConfig {
		return beacon.AdvertisingConfig{UUID: gameUUID, Major: major, Minor: minor}
	}

	detection := func(minor uint16, rssi int) beacon.Detection {
		return beacon.Detection{
			Identity: beacon.Identity{UUID: gameUUID, Major: 1, Minor: minor},
			RSSI:     rssi,
			TxPower:  -59,
			At:       now,
		}
	}

	BeforeEach(func() {
		now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		ctrl = gomock.NewController(GinkgoT())
		radio = mocks.NewRadio(ctrl)

		opts := beacon.DefaultRegistryOptions()
		opts.Clock = func() time.Time { return now }
		logger := slog.New(slog.NewTextHandler(GinkgoWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
		service = beacon.NewService(radio, beacon.NewRegistry(opts), logger)
		DeferCleanup(func() {
			ctrl.Finish()
		})
	})

	Describe("advertising", func() {
		It("rejects an invalid config without touching the radio", func() {
			err := service.StartAdvertising(beacon.AdvertisingConfig{UUID: "oni", Major: 1, Minor: 2})
			Expect(errors.Is(err, beacon.ErrInvalidConfig)).To(BeTrue())
			Expect(service.AdvertisingState()).To(Equal(beacon.Stopped))
		})

		It("becomes active once the radio confirms", func() {
			radio.EXPECT().BeginAdvertising(advertise(1, 2)).Return(nil)

			Expect(service.StartAdvertising(advertise(1, 2))).To(Succeed())
			Expect(service.AdvertisingState()).To(Equal(beacon.Active))
			cfg, ok := service.Advertising()
			Expect(ok).To(BeTrue())
			Expect(cfg).To(Equal(advertise(1, 2)))
		})

		It("canonicalizes the uuid before handing it to the radio", func() {
			radio.EXPECT().BeginAdvertising(advertise(1, 2)).Return(nil)

			upper := beacon.AdvertisingConfig{UUID: "550E8400-E29B-41D4-A716-446655440000", Major: 1, Minor: 2}
			Expect(service.StartAdvertising(upper)).To(Succeed())
		})

		It("tears down the previous advertisement before starting a new one", func() {
			gomock.InOrder(
				radio.EXPECT().BeginAdvertising(advertise(1, 2)).Return(nil),
				radio.EXPECT().EndAdvertising().Return(nil).Times(1),
				radio.EXPECT().BeginAdvertising(advertise(1, 3)).Return(nil).Times(1),
			)

			Expect(service.StartAdvertising(advertise(1, 2))).To(Succeed())
			Expect(service.StartAdvertising(advertise(1, 3))).To(Succeed())

			cfg, ok := service.Advertising()
			Expect(ok).To(BeTrue())
			Expect(cfg).To(Equal(advertise(1, 3)))
		})

		It("does nothing when the same config is already active", func() {
			radio.EXPECT().BeginAdvertising(advertise(1, 2)).Return(nil).Times(1)

			Expect(service.StartAdvertising(advertise(1, 2))).To(Succeed())
			Expect(service.StartAdvertising(advertise(1, 2))).To(Succeed())
		})

		It("reverts to stopped and reports permission denial", func() {
			radio.EXPECT().BeginAdvertising(gomock.Any()).Return(beacon.ErrPermissionDenied)

			err := service.StartAdvertising(advertise(1, 2))
			Expect(errors.Is(err, beacon.ErrPermissionDenied)).To(BeTrue())
			Expect(errors.Is(err, beacon.ErrHardwareUnavailable)).To(BeFalse())
			var rerr *beacon.RadioError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Op).To(Equal("begin advertising"))
			Expect(service.AdvertisingState()).To(Equal(beacon.Stopped))
		})

		It("treats unclassified radio failures as hardware unavailable", func() {
			cause := errors.New("adapter powered off")
			radio.EXPECT().BeginAdvertising(gomock.Any()).Return(cause)

			err := service.StartAdvertising(advertise(1, 2))
			Expect(errors.Is(err, beacon.ErrHardwareUnavailable)).To(BeTrue())
			Expect(errors.Is(err, cause)).To(BeTrue())
			Expect(service.AdvertisingState()).To(Equal(beacon.Stopped))
		})

		It("keeps the previous advertisement when teardown fails", func() {
			gomock.InOrder(
				radio.EXPECT().BeginAdvertising(advertise(1, 2)).Return(nil),
				radio.EXPECT().EndAdvertising().Return(errors.New("busy")),
			)

			Expect(service.StartAdvertising(advertise(1, 2))).To(Succeed())
			Expect(service.StartAdvertising(advertise(1, 3))).NotTo(Succeed())

			cfg, ok := service.Advertising()
			Expect(ok).To(BeTrue())
			Expect(cfg).To(Equal(advertise(1, 2)))
		})

		It("stops idempotently", func() {
			radio.EXPECT().BeginAdvertising(gomock.Any()).Return(nil)
			radio.EXPECT().EndAdvertising().Return(nil).Times(1)

			Expect(service.StopAdvertising()).To(Succeed())
			Expect(service.StartAdvertising(advertise(1, 2))).To(Succeed())
			Expect(service.StopAdvertising()).To(Succeed())
			Expect(service.StopAdvertising()).To(Succeed())
			Expect(service.AdvertisingState()).To(Equal(beacon.Stopped))
		})
	})

	Describe("scanning", func() {
		var deliver beacon.DetectionFunc

		startScanning := func() {
			radio.EXPECT().BeginScanning(gameUUID, gomock.Any()).DoAndReturn(
				func(_ string, fn beacon.DetectionFunc) error {
					deliver = fn
					return nil
				})
			Expect(service.StartScanning(gameUUID)).To(Succeed())
			Expect(service.ScanningState()).To(Equal(beacon.Active))
		}

		It("feeds detections into the registry", func() {
			startScanning()

			deliver(detection(1000, -59))
			Expect(service.GetDistanceToBeacon(1, 1000)).To(BeNumerically("~", 1.0, 0.02))
		})

		It("answers unknown beacons with the sentinel distance", func() {
			startScanning()
			Expect(service.GetDistanceToBeacon(1, 4242)).To(Equal(beacon.UnknownDistance))
		})

		It("lists nearby beacons closest first", func() {
			startScanning()

			deliver(detection(1003, -80))
			deliver(detection(1001, -55))
			deliver(detection(1002, -68))

			nearby := service.GetNearbyBeacons()
			Expect(nearby).To(HaveLen(3))
			Expect([]uint16{nearby[0].Minor, nearby[1].Minor, nearby[2].Minor}).To(Equal([]uint16{1001, 1002, 1003}))
			Expect(nearby[0].Proximity).To(Equal(beacon.ProximityImmediate))
			Expect(nearby[2].Proximity).To(Equal(beacon.ProximityFar))
		})

		It("drops detections outside the scanning scope", func() {
			startScanning()

			d := detection(1001, -60)
			d.Identity.UUID = "11111111-2222-3333-4444-555555555555"
			deliver(d)
			Expect(service.GetNearbyBeacons()).To(BeEmpty())
		})

		It("ignores detections after a confirmed stop but keeps existing entries", func() {
			startScanning()
			radio.EXPECT().EndScanning().Return(nil).Times(1)

			deliver(detection(1001, -60))
			Expect(service.StopScanning()).To(Succeed())

			deliver(detection(1002, -60))
			nearby := service.GetNearbyBeacons()
			Expect(nearby).To(HaveLen(1))
			Expect(nearby[0].Minor).To(Equal(uint16(1001)))
		})

		It("stops idempotently", func() {
			startScanning()
			radio.EXPECT().EndScanning().Return(nil).Times(1)

			Expect(service.StopScanning()).To(Succeed())
			Expect(service.ScanningState()).To(Equal(beacon.Stopped))
			Expect(service.StopScanning()).To(Succeed())
			Expect(service.ScanningState()).To(Equal(beacon.Stopped))
		})

		It("reverts to stopped when the hardware is unavailable", func() {
			radio.EXPECT().BeginScanning(gameUUID, gomock.Any()).Return(beacon.ErrHardwareUnavailable)

			err := service.StartScanning(gameUUID)
			Expect(errors.Is(err, beacon.ErrHardwareUnavailable)).To(BeTrue())
			Expect(service.ScanningState()).To(Equal(beacon.Stopped))
		})

		It("rejects a malformed scope", func() {
			err := service.StartScanning("not-a-uuid")
			Expect(errors.Is(err, beacon.ErrInvalidConfig)).To(BeTrue())
		})

		It("expires beacons that stop reporting", func() {
			startScanning()

			deliver(detection(1001, -60))
			now = now.Add(11 * time.Second)
			Expect(service.GetNearbyBeacons()).To(BeEmpty())
			Expect(service.GetDistanceToBeacon(1, 1001)).To(Equal(beacon.UnknownDistance))
			Expect(service.Expire(now)).To(Equal(1))
		})
	})

	Describe("Close", func() {
		It("stops both axes", func() {
			radio.EXPECT().BeginAdvertising(gomock.Any()).Return(nil)
			radio.EXPECT().BeginScanning(gomock.Any(), gomock.Any()).Return(nil)
			radio.EXPECT().EndScanning().Return(nil)
			radio.EXPECT().EndAdvertising().Return(nil)

			Expect(service.StartAdvertising(advertise(1, 2))).To(Succeed())
			Expect(service.StartScanning(gameUUID)).To(Succeed())
			Expect(service.Close()).To(Succeed())
			Expect(service.AdvertisingState()).To(Equal(beacon.Stopped))
			Expect(service.ScanningState()).To(Equal(beacon.Stopped))
		})
	})
})
