// Package radio holds the platform adapters behind beacon.Radio: the
// tinygo Bluetooth stack and a simulator for demo mode.
package radio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"oni-radar.klederson.com/internal/beacon"
	"oni-radar.klederson.com/internal/ibeacon"
)

// Bluetooth advertises and scans iBeacon frames through tinygo-org/bluetooth.
type Bluetooth struct {
	adapter       *bluetooth.Adapter
	measuredPower int8
	log           *slog.Logger

	// OnError, when set, receives errors from the background scan loop.
	OnError func(error)

	mu       sync.Mutex
	enabled  bool
	adv      *bluetooth.Advertisement
	scanning bool
	done     chan struct{}
}

// NewBluetooth creates a radio on the default adapter. measuredPower is the
// calibrated RSSI at 1m placed in outgoing frames.
func NewBluetooth(measuredPower int8, logger *slog.Logger) *Bluetooth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bluetooth{
		adapter:       bluetooth.DefaultAdapter,
		measuredPower: measuredPower,
		log:           logger,
	}
}

// enable powers the adapter once (caller must hold mu).
func (b *Bluetooth) enable() error {
	if b.enabled {
		return nil
	}
	if err := b.adapter.Enable(); err != nil {
		return Classify(fmt.Errorf("enable adapter: %w", err))
	}
	b.enabled = true
	return nil
}

func (b *Bluetooth) BeginAdvertising(cfg beacon.AdvertisingConfig) error {
	payload, err := ibeacon.Encode(cfg, b.measuredPower)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enable(); err != nil {
		return err
	}

	adv := b.adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: ibeacon.AppleCompanyID, Data: payload},
		},
	})
	if err != nil {
		return Classify(fmt.Errorf("configure advertisement: %w", err))
	}
	if err := adv.Start(); err != nil {
		return Classify(fmt.Errorf("start advertisement: %w", err))
	}
	b.adv = adv
	b.log.Debug("[RADIO] advertisement started", "beacon", cfg.Identity(), "power", b.measuredPower)
	return nil
}

func (b *Bluetooth) EndAdvertising() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.adv == nil {
		return nil
	}
	err := b.adv.Stop()
	b.adv = nil
	if err != nil {
		return Classify(fmt.Errorf("stop advertisement: %w", err))
	}
	return nil
}

func (b *Bluetooth) BeginScanning(uuid string, fn beacon.DetectionFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.scanning {
		return errors.New("scan already in progress")
	}
	if err := b.enable(); err != nil {
		return err
	}

	b.scanning = true
	b.done = make(chan struct{})
	go b.scan(uuid, fn, b.done)
	return nil
}

func (b *Bluetooth) scan(uuid string, fn beacon.DetectionFunc, done chan struct{}) {
	defer close(done)

	err := b.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		for _, m := range result.ManufacturerData() {
			frame, err := ibeacon.Decode(m.CompanyID, m.Data)
			if err != nil || !beacon.SameUUID(frame.UUID, uuid) {
				continue
			}
			fn(beacon.Detection{
				Identity: frame.Identity(),
				RSSI:     int(result.RSSI),
				TxPower:  int(frame.MeasuredPower),
				At:       time.Now(),
			})
		}
	})
	if err != nil {
		err = Classify(fmt.Errorf("scan: %w", err))
		b.log.Error("[RADIO] scan stopped", "error", err)
		if b.OnError != nil {
			b.OnError(err)
		}
	}

	b.mu.Lock()
	b.scanning = false
	b.mu.Unlock()
}

func (b *Bluetooth) EndScanning() error {
	b.mu.Lock()
	if !b.scanning {
		b.mu.Unlock()
		return nil
	}
	done := b.done
	b.mu.Unlock()

	if err := b.adapter.StopScan(); err != nil {
		if strings.Contains(err.Error(), "no scan in progress") {
			return nil
		}
		return Classify(fmt.Errorf("stop scan: %w", err))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		b.log.Warn("[RADIO] scan loop did not exit after StopScan")
	}
	return nil
}

var _ beacon.Radio = (*Bluetooth)(nil)
