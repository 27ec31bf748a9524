package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	prepareErr error
	recordErr  error
	stopErr    error
	uri        string

	recording atomic.Bool
	prepares  atomic.Int32
	records   atomic.Int32
	stops     atomic.Int32
}

func (f *fakeDevice) Prepare(context.Context) error {
	f.prepares.Add(1)
	return f.prepareErr
}

func (f *fakeDevice) Record(context.Context) error {
	f.records.Add(1)
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recording.Store(true)
	return nil
}

func (f *fakeDevice) Stop(context.Context) error {
	f.stops.Add(1)
	f.recording.Store(false)
	return f.stopErr
}

func (f *fakeDevice) Status() Status { return Status{IsRecording: f.recording.Load()} }
func (f *fakeDevice) URI() string    { return f.uri }

func TestBridgeBeginAndEnd(t *testing.T) {
	dev := &fakeDevice{uri: "/tmp/capture-1.wav"}
	b := NewBridge(dev, nil)

	require.True(t, b.Begin(context.Background()))
	rec, ok := b.End(context.Background())
	require.True(t, ok)
	require.Equal(t, "/tmp/capture-1.wav", rec.URI)
	require.Equal(t, int32(1), dev.stops.Load())
}

func TestBridgeBeginSwallowsFailures(t *testing.T) {
	dev := &fakeDevice{prepareErr: errors.New("no disk")}
	require.False(t, NewBridge(dev, nil).Begin(context.Background()))
	require.Equal(t, int32(0), dev.records.Load())

	dev = &fakeDevice{recordErr: errors.New("mic busy")}
	require.False(t, NewBridge(dev, nil).Begin(context.Background()))
	require.False(t, dev.recording.Load())
}

func TestBridgeEndSkipsStopWhenNotRecording(t *testing.T) {
	dev := &fakeDevice{uri: "/tmp/x.wav"}
	_, ok := NewBridge(dev, nil).End(context.Background())
	require.False(t, ok)
	require.Equal(t, int32(0), dev.stops.Load())
}

func TestBridgeEndStopFailure(t *testing.T) {
	dev := &fakeDevice{uri: "/tmp/x.wav", stopErr: errors.New("boom")}
	b := NewBridge(dev, nil)
	require.True(t, b.Begin(context.Background()))
	_, ok := b.End(context.Background())
	require.False(t, ok)
}

func TestBridgeNilDevice(t *testing.T) {
	b := NewBridge(nil, nil)
	require.False(t, b.Begin(context.Background()))
	_, ok := b.End(context.Background())
	require.False(t, ok)

	var nilBridge *Bridge
	require.False(t, nilBridge.Begin(context.Background()))
}
