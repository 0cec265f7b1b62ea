// Package validation scores distance estimates against tape-measured ground
// truth so the path-loss model can be checked in the field.
package validation

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"
	"time"
)

// Accuracy grades one estimate against its range-dependent tolerance.
type Accuracy int

const (
	Excellent Accuracy = iota // within tolerance
	Good                      // within 1.5x tolerance
	Poor                      // within 2x tolerance
	Failed
)

func (a Accuracy) String() string {
	switch a {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Poor:
		return "Poor"
	default:
		return "Failed"
	}
}

// Options sets the tolerance bands. Actual distances up to NearRange use
// NearAccuracy, up to MidRange use MidAccuracy, beyond that FarAccuracy.
type Options struct {
	NearRange    float64
	MidRange     float64
	NearAccuracy float64
	MidAccuracy  float64
	FarAccuracy  float64
	History      int
	Clock        func() time.Time
}

// DefaultOptions returns 2m/10m bands with ±0.5/±2/±5m tolerances and a
// 100-record history.
func DefaultOptions() Options {
	return Options{
		NearRange:    2,
		MidRange:     10,
		NearAccuracy: 0.5,
		MidAccuracy:  2,
		FarAccuracy:  5,
		History:      100,
		Clock:        time.Now,
	}
}

// Record is one scored measurement.
type Record struct {
	Timestamp    time.Time
	Actual       float64 // meters
	Measured     float64 // meters
	RSSI         int
	Error        float64 // |measured - actual|
	ErrorPercent float64 // 0 when actual is 0
	Accuracy     Accuracy
}

func (r Record) String() string {
	return fmt.Sprintf("actual=%.2fm measured=%.2fm rssi=%d err=%.2fm (%.1f%%) %s",
		r.Actual, r.Measured, r.RSSI, r.Error, r.ErrorPercent, r.Accuracy)
}

// Stats summarizes the retained records.
type Stats struct {
	Total             int
	AverageError      float64
	AverageErrPercent float64
	SuccessRate       float64 // percent of Excellent and Good
	Excellent         int
	Good              int
	Poor              int
	Failed            int
}

func (s Stats) String() string {
	return fmt.Sprintf("records=%d avg_err=%.1fm (%.1f%%) success=%.1f%% [excellent=%d good=%d poor=%d failed=%d]",
		s.Total, s.AverageError, s.AverageErrPercent, s.SuccessRate, s.Excellent, s.Good, s.Poor, s.Failed)
}

// Validator keeps the most recent records. It is safe for concurrent use.
type Validator struct {
	opts Options

	mu      sync.Mutex
	records *Ring[Record]
}

// New creates a Validator. Zero-valued options fall back to defaults.
func New(opts Options) *Validator {
	def := DefaultOptions()
	if opts.NearRange <= 0 {
		opts.NearRange = def.NearRange
	}
	if opts.MidRange <= opts.NearRange {
		opts.MidRange = math.Max(def.MidRange, opts.NearRange)
	}
	if opts.NearAccuracy <= 0 {
		opts.NearAccuracy = def.NearAccuracy
	}
	if opts.MidAccuracy <= 0 {
		opts.MidAccuracy = def.MidAccuracy
	}
	if opts.FarAccuracy <= 0 {
		opts.FarAccuracy = def.FarAccuracy
	}
	if opts.History <= 0 {
		opts.History = def.History
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	return &Validator{
		opts:    opts,
		records: NewRing[Record](opts.History),
	}
}

// Grade scores measured against actual without recording it.
func (v *Validator) Grade(actual, measured float64) Accuracy {
	errDist := math.Abs(measured - actual)

	var tol float64
	switch {
	case actual <= v.opts.NearRange:
		tol = v.opts.NearAccuracy
	case actual <= v.opts.MidRange:
		tol = v.opts.MidAccuracy
	default:
		tol = v.opts.FarAccuracy
	}

	switch {
	case errDist <= tol:
		return Excellent
	case errDist <= tol*1.5:
		return Good
	case errDist <= tol*2:
		return Poor
	default:
		return Failed
	}
}

// Record scores and stores one measurement. Negative distances cannot be
// graded and are rejected.
func (v *Validator) Record(actual, measured float64, rssi int) (Record, error) {
	if actual < 0 || measured < 0 || math.IsNaN(actual) || math.IsNaN(measured) {
		return Record{}, fmt.Errorf("validation: distances must be non-negative, got actual=%v measured=%v", actual, measured)
	}

	errDist := math.Abs(measured - actual)
	rec := Record{
		Timestamp: v.opts.Clock(),
		Actual:    actual,
		Measured:  measured,
		RSSI:      rssi,
		Error:     errDist,
		Accuracy:  v.Grade(actual, measured),
	}
	if actual > 0 {
		rec.ErrorPercent = errDist / actual * 100
	}

	v.mu.Lock()
	v.records.Push(rec)
	v.mu.Unlock()
	return rec, nil
}

// Records returns the retained records, oldest first.
func (v *Validator) Records() []Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.records.Values()
}

// Stats summarizes the retained records.
func (v *Validator) Stats() Stats {
	recs := v.Records()
	var s Stats
	if len(recs) == 0 {
		return s
	}

	var sumErr, sumPct float64
	for _, r := range recs {
		sumErr += r.Error
		sumPct += r.ErrorPercent
		switch r.Accuracy {
		case Excellent:
			s.Excellent++
		case Good:
			s.Good++
		case Poor:
			s.Poor++
		default:
			s.Failed++
		}
	}
	s.Total = len(recs)
	s.AverageError = sumErr / float64(s.Total)
	s.AverageErrPercent = sumPct / float64(s.Total)
	s.SuccessRate = float64(s.Excellent+s.Good) / float64(s.Total) * 100
	return s
}

// Clear drops all records.
func (v *Validator) Clear() {
	v.mu.Lock()
	v.records.Reset()
	v.mu.Unlock()
}

var csvHeader = []string{"Timestamp", "ActualDistance", "BLEDistance", "RSSI", "ErrorDistance", "ErrorPercentage", "Accuracy"}

// WriteCSV writes the retained records with a header row.
func (v *Validator) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range v.Records() {
		row := []string{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(r.Actual, 'f', 2, 64),
			strconv.FormatFloat(r.Measured, 'f', 2, 64),
			strconv.Itoa(r.RSSI),
			strconv.FormatFloat(r.Error, 'f', 2, 64),
			strconv.FormatFloat(r.ErrorPercent, 'f', 1, 64),
			r.Accuracy.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
