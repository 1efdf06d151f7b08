package audiofile

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// encoder is the part of the go-audio wav and aiff encoders used here.
type encoder interface {
	Write(buf *goaudio.IntBuffer) error
	Close() error
}

// Create writes clip to path as 16-bit PCM. The extension selects WAV or
// AIFF; any other extension is rejected.
func Create(path string, clip *Clip) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format != FormatWAV && format != FormatAIFF {
		return fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFormat, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audiofile: %w", err)
	}
	if err := Encode(f, clip, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audiofile: %w", err)
	}
	return nil
}

// Encode writes clip to w as 16-bit PCM in the given format.
func Encode(w io.WriteSeeker, clip *Clip, format Format) error {
	if clip.SampleRate <= 0 || clip.Channels <= 0 {
		return fmt.Errorf("audiofile: invalid clip format %d Hz x %d", clip.SampleRate, clip.Channels)
	}

	var enc encoder
	switch format {
	case FormatWAV:
		enc = wav.NewEncoder(w, clip.SampleRate, 16, clip.Channels, 1)
	case FormatAIFF:
		enc = aiff.NewEncoder(w, clip.SampleRate, 16, clip.Channels)
	default:
		return fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFormat, format)
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		Data:           make([]int, len(clip.Samples)),
		SourceBitDepth: 16,
	}
	for i, v := range clip.Samples {
		buf.Data[i] = int(ToInt16(v))
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audiofile: encode %s: %w", format, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audiofile: encode %s: %w", format, err)
	}
	return nil
}

// ToInt16 clamps v to [-1, 1] and scales it to 16 bits, rounding half away
// from zero.
func ToInt16(v float32) int16 {
	if v != v {
		return 0
	}
	v = min(max(v, -1), 1)
	return int16(math.Round(float64(v) * 32767))
}
