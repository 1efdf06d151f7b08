package pipeline

import "math"

// Process runs an interleaved float block with the configured channel
// count in place.
func (p *Pipeline) Process(buf []float32) {
	p.ProcessInterleaved(buf, p.channels)
}

// ProcessInterleaved runs an interleaved float block in place. Channel
// counts other than 1 and 2 are treated as 2. A trailing partial frame is
// left untouched.
func (p *Pipeline) ProcessInterleaved(buf []float32, channels int) {
	if channels == 1 {
		p.ProcessMono(buf, buf)
		return
	}

	frames := len(buf) / 2
	start := p.begin()

	for off := 0; off < frames; off += p.blockSize {
		end := min(off+p.blockSize, frames)
		l, r := p.left[:end-off], p.right[:end-off]
		chunk := buf[2*off : 2*end]

		for i := range l {
			l[i] = chunk[2*i]
			r[i] = chunk[2*i+1]
		}
		p.runStereo(l, r)
		for i := range l {
			chunk[2*i] = l[i]
			chunk[2*i+1] = r[i]
		}
	}

	p.observe(frames, start)
}

// ProcessInt16 runs an interleaved 16-bit block in place. Samples are
// scaled by 1/32768 on the way in and by 32767 with round-half-away-from-
// zero on the way out. Channel counts other than 1 and 2 are treated as 2
// and non-positive sample rates as DefaultSampleRate. A sample rate that
// differs from the current one retimes the pipeline first.
func (p *Pipeline) ProcessInt16(buf []int16, channels int, sampleRate float64) error {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if err := p.SetSampleRate(sampleRate); err != nil {
		return err
	}

	if channels != 1 {
		channels = 2
	}
	frames := len(buf) / channels
	start := p.begin()

	for off := 0; off < frames; off += p.blockSize {
		end := min(off+p.blockSize, frames)
		l, r := p.left[:end-off], p.right[:end-off]
		chunk := buf[channels*off : channels*end]

		if channels == 1 {
			for i, v := range chunk {
				l[i] = fromInt16(v)
			}
			p.runMono(l)
			for i := range chunk {
				chunk[i] = toInt16(l[i])
			}
			continue
		}

		for i := range l {
			l[i] = fromInt16(chunk[2*i])
			r[i] = fromInt16(chunk[2*i+1])
		}
		p.runStereo(l, r)
		for i := range l {
			chunk[2*i] = toInt16(l[i])
			chunk[2*i+1] = toInt16(r[i])
		}
	}

	p.observe(frames, start)
	return nil
}

func fromInt16(v int16) float32 {
	return float32(v) / 32768
}

func toInt16(v float32) int16 {
	v = min(max(v, -1), 1)
	return int16(math.Round(float64(v) * 32767))
}
