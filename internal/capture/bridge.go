// Package capture wraps the recording device so a dictation session can
// record alongside recognition without the device's failures reaching the
// session.
package capture

import (
	"context"
	"log/slog"
)

// Status is the device's own view of whether it is writing audio.
type Status struct {
	IsRecording bool
}

// Device is the recording capability the bridge drives.
type Device interface {
	Prepare(ctx context.Context) error
	Record(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() Status
	URI() string
}

// Recording points at a finished temporary capture file.
type Recording struct {
	URI string
}

// Bridge starts and finishes best-effort recordings.
type Bridge struct {
	device Device
	logger *slog.Logger
}

// NewBridge wraps device. A nil device makes every call a no-op.
func NewBridge(device Device, logger *slog.Logger) *Bridge {
	return &Bridge{device: device, logger: logger}
}

// Begin prepares and starts a recording. Failures are logged and reported
// as false; the caller continues without audio.
func (b *Bridge) Begin(ctx context.Context) bool {
	if b == nil || b.device == nil {
		return false
	}
	if err := b.device.Prepare(ctx); err != nil {
		b.log("capture prepare failed", err)
		return false
	}
	if err := b.device.Record(ctx); err != nil {
		b.log("capture start failed", err)
		return false
	}
	return true
}

// End stops the device only when it reports an active recording and returns
// the resulting file. The second result is false when no usable file exists.
func (b *Bridge) End(ctx context.Context) (Recording, bool) {
	if b == nil || b.device == nil {
		return Recording{}, false
	}
	if !b.device.Status().IsRecording {
		return Recording{}, false
	}
	if err := b.device.Stop(ctx); err != nil {
		b.log("capture stop failed", err)
		return Recording{}, false
	}
	uri := b.device.URI()
	if uri == "" {
		return Recording{}, false
	}
	return Recording{URI: uri}, true
}

func (b *Bridge) log(msg string, err error) {
	if b.logger == nil {
		return
	}
	b.logger.Warn(msg, "error", err.Error())
}
