package radio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"

	"oni-radar.klederson.com/internal/beacon"
)

// BlueZ and D-Bus error names that mean the caller is not allowed to use
// the adapter. Everything else from the stack counts as hardware trouble.
var permissionErrorNames = map[string]bool{
	"org.bluez.Error.NotPermitted":            true,
	"org.bluez.Error.NotAuthorized":           true,
	"org.bluez.Error.AuthenticationFailed":    true,
	"org.freedesktop.DBus.Error.AccessDenied": true,
	"org.freedesktop.DBus.Error.AuthFailed":   true,
}

// Classify wraps a radio stack error with beacon.ErrPermissionDenied or
// beacon.ErrHardwareUnavailable. A nil error stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, beacon.ErrPermissionDenied) || errors.Is(err, beacon.ErrHardwareUnavailable) {
		return err
	}
	if name, ok := dbusErrorName(err); ok {
		if permissionErrorNames[name] {
			return fmt.Errorf("%w: %s: %v", beacon.ErrPermissionDenied, name, err)
		}
		return fmt.Errorf("%w: %s: %v", beacon.ErrHardwareUnavailable, name, err)
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", beacon.ErrPermissionDenied, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "not permitted") ||
		strings.Contains(msg, "unauthorized") {
		return fmt.Errorf("%w: %v", beacon.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", beacon.ErrHardwareUnavailable, err)
}

func dbusErrorName(err error) (string, bool) {
	var v dbus.Error
	if errors.As(err, &v) {
		return v.Name, true
	}
	var p *dbus.Error
	if errors.As(err, &p) && p != nil {
		return p.Name, true
	}
	return "", false
}
