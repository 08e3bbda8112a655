// Package audio plays PCM speech through the system audio device.
package audio

import (
	"encoding/binary"
	"errors"
	"time"
)

// ErrAudioUnavailable is returned when no audio output can be opened.
var ErrAudioUnavailable = errors.New("audio output not available")

// BytesPerSample is the size of one signed 16-bit sample.
const BytesPerSample = 2

// Resample converts interleaved s16le PCM from one sample rate to another
// with linear interpolation. It returns pcm unchanged when the rates match.
func Resample(pcm []byte, from, to, channels int) []byte {
	if from == to || from <= 0 || to <= 0 || channels <= 0 {
		return pcm
	}
	frameSize := BytesPerSample * channels
	inFrames := len(pcm) / frameSize
	if inFrames == 0 {
		return nil
	}
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	out := make([]byte, outFrames*frameSize)

	sample := func(frame, ch int) float64 {
		if frame >= inFrames {
			frame = inFrames - 1
		}
		off := frame*frameSize + ch*BytesPerSample
		return float64(int16(binary.LittleEndian.Uint16(pcm[off:])))
	}

	step := float64(from) / float64(to)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		base := int(pos)
		frac := pos - float64(base)
		for ch := 0; ch < channels; ch++ {
			v := sample(base, ch)*(1-frac) + sample(base+1, ch)*frac
			binary.LittleEndian.PutUint16(out[i*frameSize+ch*BytesPerSample:], uint16(int16(v)))
		}
	}
	return out
}

// bytesToDuration converts a PCM byte count to playback time.
func bytesToDuration(n int64, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := n / int64(BytesPerSample*channels)
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
