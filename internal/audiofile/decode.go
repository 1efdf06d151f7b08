package audiofile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// pcmChunk is the read size for the go-audio decoders.
const pcmChunk = 4096

// Open decodes the file at path, choosing the codec by extension.
func Open(path string) (*Clip, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiofile: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode reads a whole clip of the given format from r.
func Decode(r io.ReadSeeker, format Format) (*Clip, error) {
	switch format {
	case FormatWAV:
		return decodeWAV(r)
	case FormatAIFF:
		return decodeAIFF(r)
	case FormatMP3:
		return decodeMP3(r)
	case FormatOgg:
		return decodeOgg(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// pcmReader is the part of the go-audio wav and aiff decoders used here.
type pcmReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a wav file", ErrInvalidFile)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: wav encoding %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	return readPCM(dec, int(dec.BitDepth))
}

func decodeAIFF(r io.ReadSeeker) (*Clip, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an aiff file", ErrInvalidFile)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return readPCM(dec, int(dec.BitDepth))
}

func readPCM(dec pcmReader, bitDepth int) (*Clip, error) {
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format chunk", ErrInvalidFile)
	}

	scale, err := intScale(bitDepth)
	if err != nil {
		return nil, err
	}

	clip := &Clip{SampleRate: format.SampleRate, Channels: format.NumChannels}
	buf := &goaudio.IntBuffer{Data: make([]int, pcmChunk*format.NumChannels), Format: format}
	for {
		n, err := dec.PCMBuffer(buf)
		for _, v := range buf.Data[:n] {
			clip.Samples = append(clip.Samples, float32(v)*scale)
		}
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("audiofile: read pcm: %w", err)
		}
		if n == 0 || err == io.EOF {
			break
		}
	}
	return clip, nil
}

func intScale(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 1.0 / 128, nil
	case 16:
		return 1.0 / 32768, nil
	case 24:
		return 1.0 / 8388608, nil
	case 32:
		return 1.0 / 2147483648, nil
	}
	return 0, fmt.Errorf("%w: %d-bit pcm", ErrUnsupportedFormat, bitDepth)
}

// decodeMP3 converts the decoder's 16-bit little-endian stereo stream.
func decodeMP3(r io.Reader) (*Clip, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", ErrInvalidFile, err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("audiofile: read mp3: %w", err)
	}

	pcm := make([]int16, len(data)/2)
	if err := binary.Read(bytes.NewReader(data[:len(pcm)*2]), binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("audiofile: read mp3: %w", err)
	}

	clip := &Clip{SampleRate: dec.SampleRate(), Channels: 2, Samples: make([]float32, len(pcm))}
	for i, v := range pcm {
		clip.Samples[i] = float32(v) / 32768
	}
	return clip, nil
}

func decodeOgg(r io.Reader) (*Clip, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: ogg: %w", ErrInvalidFile, err)
	}
	return &Clip{SampleRate: format.SampleRate, Channels: format.Channels, Samples: samples}, nil
}
