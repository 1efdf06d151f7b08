package spectrum

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-eqchain/dsp/window"
)

const (
	// DefaultSize is the default analysis length in samples.
	DefaultSize = 1024
	// DefaultBars is the default number of published bars.
	DefaultBars = 32
)

// freshBit marks the middle slot of the triple buffer as unread.
const freshBit = 1 << 2

// Option configures an Analyzer.
type Option func(*config)

type config struct {
	size int
	bars int
	dft  bool
	win  window.Type
}

// WithSize sets the analysis length in samples.
func WithSize(n int) Option {
	return func(c *config) {
		c.size = n
	}
}

// WithBars sets the number of published bars.
func WithBars(n int) Option {
	return func(c *config) {
		c.bars = n
	}
}

// WithWindow selects the analysis window. The default is Hann.
func WithWindow(t window.Type) Option {
	return func(c *config) {
		c.win = t
	}
}

// WithDFT forces the direct DFT even when the size is a power of two.
func WithDFT() Option {
	return func(c *config) {
		c.dft = true
	}
}

// Analyzer computes bar magnitudes from processed audio.
//
// Push and PushStereo must be called from a single goroutine (the audio
// goroutine). Start, Stop, Running and CopyMagnitudes may be called from
// any goroutine. None of the audio-side methods block or allocate.
type Analyzer struct {
	size   int
	bars   int
	dft    bool
	window window.Type

	running      atomic.Bool
	resetPending atomic.Bool
	frames       atomic.Uint64

	// Audio goroutine state.
	ring   []float64
	write  int
	filled int
	frame  []float64
	win    []float64
	scale  float64
	xf     transform
	bins   []complex128
	re, im []float64
	mag    []float64
	edges  []int

	// Triple buffer. back is owned by the writer, front by the reader
	// (under readMu); middle holds the third slot index plus freshBit.
	slots  [3][]float32
	back   int
	middle atomic.Uint32
	readMu sync.Mutex
	front  int
}

// New creates a stopped analyzer.
func New(opts ...Option) (*Analyzer, error) {
	cfg := config{size: DefaultSize, bars: DefaultBars, win: window.TypeHann}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if !cfg.win.Valid() {
		return nil, fmt.Errorf("spectrum: %w: %d", window.ErrUnknownType, int(cfg.win))
	}

	if cfg.size < 2 {
		return nil, fmt.Errorf("spectrum: size must be >= 2: %d", cfg.size)
	}

	half := cfg.size / 2
	if cfg.bars < 1 || cfg.bars > half {
		return nil, fmt.Errorf("spectrum: bars must be in [1, %d]: %d", half, cfg.bars)
	}

	a := &Analyzer{
		size:  cfg.size,
		bars:  cfg.bars,
		ring:  make([]float64, cfg.size),
		frame: make([]float64, cfg.size),
		bins:  make([]complex128, cfg.size),
		re:    make([]float64, half+1),
		im:    make([]float64, half+1),
		mag:   make([]float64, half+1),
		edges: barEdges(cfg.bars, half),
		back:  0,
		front: 2,
	}
	for i := range a.slots {
		a.slots[i] = make([]float32, cfg.bars)
	}
	a.middle.Store(1)

	a.window = cfg.win
	a.win = window.Generate(cfg.win, cfg.size, window.WithPeriodic())
	cg, err := window.CoherentGain(a.win)
	if err != nil {
		return nil, fmt.Errorf("spectrum: window: %w", err)
	}
	a.scale = 2 / (cg * float64(cfg.size))

	if !cfg.dft && isPowerOfTwo(cfg.size) {
		xf, err := newFFTTransform(cfg.size)
		if err != nil {
			return nil, err
		}
		a.xf = xf
	} else {
		a.dft = true
		a.xf = dftTransform{}
	}

	return a, nil
}

// Size returns the analysis length.
func (a *Analyzer) Size() int { return a.size }

// Bars returns the number of bars.
func (a *Analyzer) Bars() int { return a.bars }

// UsesDFT reports whether the direct DFT is in use.
func (a *Analyzer) UsesDFT() bool { return a.dft }

// Window returns the analysis window type.
func (a *Analyzer) Window() window.Type { return a.window }

// Frames returns the number of frames published since creation.
func (a *Analyzer) Frames() uint64 { return a.frames.Load() }

// Running reports whether analysis is active.
func (a *Analyzer) Running() bool { return a.running.Load() }

// Start begins analysis. History and published bars are cleared on the
// next push.
func (a *Analyzer) Start() {
	a.resetPending.Store(true)
	a.running.Store(true)
}

// Stop halts analysis. CopyMagnitudes returns zeros while stopped.
func (a *Analyzer) Stop() {
	a.running.Store(false)
}

// Push feeds a block of mono samples.
func (a *Analyzer) Push(mono []float32) {
	if !a.running.Load() {
		return
	}
	a.applyPendingReset()

	for _, x := range mono {
		a.append(float64(x))
	}
	a.analyzeIfFull()
}

// PushStereo feeds a block of stereo samples, analyzed as (L+R)/2. Only the
// common length is used.
func (a *Analyzer) PushStereo(left, right []float32) {
	if !a.running.Load() {
		return
	}
	a.applyPendingReset()

	n := min(len(left), len(right))
	for i := range n {
		a.append(0.5 * (float64(left[i]) + float64(right[i])))
	}
	a.analyzeIfFull()
}

// CopyMagnitudes copies the latest bars into dst and returns the number of
// values written, min(len(dst), Bars()). While stopped the values are zero.
func (a *Analyzer) CopyMagnitudes(dst []float32) int {
	n := min(len(dst), a.bars)
	if !a.running.Load() {
		clear(dst[:n])
		return n
	}

	a.readMu.Lock()
	defer a.readMu.Unlock()

	if a.middle.Load()&freshBit != 0 {
		old := a.middle.Swap(uint32(a.front))
		a.front = int(old &^ freshBit)
	}
	copy(dst[:n], a.slots[a.front])

	return n
}

func (a *Analyzer) append(x float64) {
	a.ring[a.write] = x
	a.write++
	if a.write == a.size {
		a.write = 0
	}
	if a.filled < a.size {
		a.filled++
	}
}

func (a *Analyzer) applyPendingReset() {
	if !a.resetPending.CompareAndSwap(true, false) {
		return
	}

	clear(a.ring)
	a.write = 0
	a.filled = 0

	clear(a.slots[a.back])
	a.publish()
}

func (a *Analyzer) analyzeIfFull() {
	if a.filled < a.size {
		return
	}

	n := copy(a.frame, a.ring[a.write:])
	copy(a.frame[n:], a.ring[:a.write])

	if err := window.ApplyCoefficientsInPlace(a.frame, a.win); err != nil {
		return
	}
	if err := a.xf.forward(a.bins, a.frame); err != nil {
		return
	}

	split(a.re, a.im, a.bins[:len(a.re)])
	MagnitudeFromParts(a.mag, a.re, a.im)
	for i := range a.mag {
		a.mag[i] *= a.scale
	}

	reduceBars(a.slots[a.back], a.mag, a.edges)
	a.publish()
	a.frames.Add(1)
}

func (a *Analyzer) publish() {
	old := a.middle.Swap(uint32(a.back) | freshBit)
	a.back = int(old &^ freshBit)
}
