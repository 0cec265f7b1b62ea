package app

import "time"

// EvictMsg triggers registry expiry.
type EvictMsg time.Time

// ReportMsg triggers a game evaluation.
type ReportMsg time.Time

// ScanErrorMsg reports a fatal radio error from a background loop.
type ScanErrorMsg struct {
	Err error
}
