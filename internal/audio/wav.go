package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

var monoFormat = &goaudio.Format{NumChannels: 1, SampleRate: SampleRate}

// intBuffer converts little-endian s16 PCM into a go-audio buffer.
func intBuffer(pcm []byte) *goaudio.IntBuffer {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return &goaudio.IntBuffer{Format: monoFormat, Data: samples, SourceBitDepth: bitDepth}
}

func newEncoder(w io.WriteSeeker) *wav.Encoder {
	// audioFormat 1 is uncompressed PCM.
	return wav.NewEncoder(w, SampleRate, bitDepth, 1, 1)
}

// WriteWAV writes mono 16 kHz s16 PCM to path as a WAV file.
func WriteWAV(path string, pcm []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open wav %q: %w", path, err)
	}
	enc := newEncoder(f)
	if err := enc.Write(intBuffer(pcm)); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode wav %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize wav %q: %w", path, err)
	}
	return f.Close()
}
