package beacon

// DetectionFunc receives scan results. The radio may call it from any
// goroutine, concurrently with itself.
type DetectionFunc func(Detection)

// Radio is the platform adapter the service drives. Implementations return
// errors wrapping ErrPermissionDenied when the OS refuses access; any other
// failure is treated as hardware unavailability.
type Radio interface {
	// BeginAdvertising starts broadcasting cfg. Only one advertisement is
	// ever active; the service ends the previous one first.
	BeginAdvertising(cfg AdvertisingConfig) error
	// EndAdvertising stops the current advertisement.
	EndAdvertising() error
	// BeginScanning starts delivering detections in the uuid scope to fn.
	BeginScanning(uuid string, fn DetectionFunc) error
	// EndScanning stops scanning. Callbacks already in flight may still run.
	EndScanning() error
}
