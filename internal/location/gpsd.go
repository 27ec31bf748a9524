package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stratoberry/go-gpsd"
)

const (
	// DefaultGPSDAddr is gpsd's standard listen address.
	DefaultGPSDAddr = "127.0.0.1:2947"

	closeGrace = time.Second
)

// ErrNoFix reports that gpsd gave no 2D or 3D fix before the timeout.
var ErrNoFix = errors.New("gpsd: no position fix")

// GPSD watches a gpsd daemon for one fix per request.
type GPSD struct {
	Addr    string
	Timeout time.Duration
}

func (g GPSD) addr() string {
	if g.Addr == "" {
		return DefaultGPSDAddr
	}
	return g.Addr
}

func (g GPSD) timeout() time.Duration {
	if g.Timeout <= 0 {
		return 3 * time.Second
	}
	return g.Timeout
}

// ServicesEnabled reports whether gpsd accepts connections and greets.
func (g GPSD) ServicesEnabled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	sess, err := gpsd.DialTimeout(g.addr(), g.timeout())
	if err != nil {
		return false
	}
	_ = sess.Close()
	return true
}

// CurrentPosition enables watch mode and waits for the first TPV report with
// a 2D or 3D fix. Reports without a fix are skipped until the timeout.
func (g GPSD) CurrentPosition(ctx context.Context) (Position, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	sess, err := gpsd.DialTimeout(g.addr(), g.timeout())
	if err != nil {
		return Position{}, fmt.Errorf("dial gpsd: %w", err)
	}

	fixes := make(chan Position, 1)
	sess.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok || tpv.Mode < gpsd.Mode2D {
			return
		}
		select {
		case fixes <- Position{Latitude: tpv.Lat, Longitude: tpv.Lon}:
		default:
		}
	})
	done := sess.Watch()

	var (
		pos    Position
		result error
		ended  bool
	)
	select {
	case pos = <-fixes:
	case <-done:
		ended = true
		select {
		case pos = <-fixes:
		default:
			result = errors.New("gpsd closed before reporting a position")
		}
	case <-ctx.Done():
		result = ErrNoFix
	}

	_ = sess.Close()
	if !ended {
		// The watch goroutine reports once its reader fails on the closed socket.
		select {
		case <-done:
		case <-time.After(closeGrace):
		}
	}
	return pos, result
}
