// Package location resolves the coordinates stamped on saved records.
package location

import (
	"context"
	"errors"
	"strconv"
)

// Unavailable is stored when no position can be resolved.
const Unavailable = "Indisponível"

// ErrDisabled reports that positioning is switched off.
var ErrDisabled = errors.New("location services disabled")

// Position is a WGS84 fix.
type Position struct {
	Latitude  float64
	Longitude float64
}

// String formats the position as "lat,lon".
func (p Position) String() string {
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

// Service is a source of device positions.
type Service interface {
	ServicesEnabled(ctx context.Context) bool
	CurrentPosition(ctx context.Context) (Position, error)
}

// Resolve returns "lat,lon" or Unavailable. It never fails.
func Resolve(ctx context.Context, svc Service) string {
	if svc == nil || !svc.ServicesEnabled(ctx) {
		return Unavailable
	}
	pos, err := svc.CurrentPosition(ctx)
	if err != nil {
		return Unavailable
	}
	return pos.String()
}

// Fixed always reports the configured position.
type Fixed struct {
	Position Position
}

func (Fixed) ServicesEnabled(context.Context) bool { return true }

func (f Fixed) CurrentPosition(context.Context) (Position, error) { return f.Position, nil }

// Disabled reports positioning as switched off.
type Disabled struct{}

func (Disabled) ServicesEnabled(context.Context) bool { return false }

func (Disabled) CurrentPosition(context.Context) (Position, error) { return Position{}, ErrDisabled }
