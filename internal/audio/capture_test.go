package audio

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptureOnPCMChunkingAndStopFlushesPending(t *testing.T) {
	capture := &Capture{
		keepPCM: true,
		chunks:  make(chan []byte, 8),
		stopCh:  make(chan struct{}),
	}

	input := make([]byte, chunkSizeBytes+111)
	for i := range input {
		input[i] = byte(i % 251)
	}

	n, err := capture.onPCM(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), capture.BytesCaptured())
	require.Equal(t, input, capture.RawPCM())

	require.Len(t, <-capture.Chunks(), chunkSizeBytes)

	require.NoError(t, capture.Stop())
	require.NoError(t, capture.Stop())

	remaining, ok := <-capture.Chunks()
	require.True(t, ok)
	require.Len(t, remaining, 111)

	_, ok = <-capture.Chunks()
	require.False(t, ok)
}

func TestCaptureWithoutKeepPCMRetainsNothing(t *testing.T) {
	capture := &Capture{chunks: make(chan []byte, 2), stopCh: make(chan struct{})}

	_, err := capture.onPCM(make([]byte, chunkSizeBytes))
	require.NoError(t, err)
	require.Empty(t, capture.RawPCM())
}

func TestCaptureOnPCMReturnsEOFWhenStopped(t *testing.T) {
	capture := &Capture{chunks: make(chan []byte, 1), stopCh: make(chan struct{})}
	close(capture.stopCh)

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, int64(0), capture.BytesCaptured())
}

func TestCaptureDeviceAndCloseAlias(t *testing.T) {
	capture := &Capture{
		device: Device{ID: "mic-1", Description: "Mic"},
		chunks: make(chan []byte, 1),
		stopCh: make(chan struct{}),
	}
	require.Equal(t, "mic-1", capture.Device().ID)

	capture.Close()
	_, ok := <-capture.Chunks()
	require.False(t, ok)
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	writer := writerFunc(func(b []byte) (int, error) { return len(b), nil })
	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
