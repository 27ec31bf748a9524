package capture

import (
	"github.com/rbright/agrovoz/internal/audio"
)

// RecorderDevice adapts audio.Recorder to Device.
type RecorderDevice struct {
	*audio.Recorder
}

// Status reports the recorder's own recording flag.
func (d RecorderDevice) Status() Status {
	return Status{IsRecording: d.Recorder.Status().IsRecording}
}
