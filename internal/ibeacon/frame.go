// Package ibeacon encodes and decodes the iBeacon manufacturer-data frame.
//
// Layout after the Apple company ID (0x004C):
//
//	0x02 0x15 | uuid[16] | major (BE) | minor (BE) | measured power (int8)
package ibeacon

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"oni-radar.klederson.com/internal/beacon"
)

// AppleCompanyID is the Bluetooth SIG company identifier used by iBeacon.
const AppleCompanyID uint16 = 0x004C

const (
	frameType   = 0x02
	frameLength = 0x15
	frameSize   = 2 + frameLength
)

// DefaultMeasuredPower is the typical calibrated RSSI at 1m for phones.
const DefaultMeasuredPower int8 = -59

// ErrNotIBeacon is returned for manufacturer data that is not an iBeacon frame.
var ErrNotIBeacon = errors.New("ibeacon: not an iBeacon frame")

// Frame is a decoded iBeacon advertisement.
type Frame struct {
	UUID          string // canonical lowercase dashed form
	Major         uint16
	Minor         uint16
	MeasuredPower int8
}

// Identity returns the beacon identity carried by the frame.
func (f Frame) Identity() beacon.Identity {
	return beacon.Identity{UUID: f.UUID, Major: f.Major, Minor: f.Minor}
}

// Encode builds the manufacturer data payload (without the company ID) for cfg.
func Encode(cfg beacon.AdvertisingConfig, measuredPower int8) ([]byte, error) {
	uuid, err := beacon.ParseUUID(cfg.UUID)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(strings.ReplaceAll(uuid, "-", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", beacon.ErrInvalidConfig, err)
	}

	buf := make([]byte, frameSize)
	buf[0] = frameType
	buf[1] = frameLength
	copy(buf[2:18], raw)
	binary.BigEndian.PutUint16(buf[18:20], cfg.Major)
	binary.BigEndian.PutUint16(buf[20:22], cfg.Minor)
	buf[22] = byte(measuredPower)
	return buf, nil
}

// Decode parses manufacturer data for the given company ID.
func Decode(companyID uint16, data []byte) (Frame, error) {
	if companyID != AppleCompanyID || len(data) < frameSize || data[0] != frameType || data[1] != frameLength {
		return Frame{}, ErrNotIBeacon
	}

	h := hex.EncodeToString(data[2:18])
	return Frame{
		UUID:          h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32],
		Major:         binary.BigEndian.Uint16(data[18:20]),
		Minor:         binary.BigEndian.Uint16(data[20:22]),
		MeasuredPower: int8(data[22]),
	}, nil
}
