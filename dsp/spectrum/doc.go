// Package spectrum provides the real-time spectrum analyzer and the
// magnitude helpers it is built on.
//
// An [Analyzer] collects processed audio on the audio goroutine, computes a
// Hann-windowed magnitude spectrum over a fixed analysis length and reduces
// it to a small number of log-spaced bars in [0, 1]. Bars are published
// through a lock-free triple buffer so that control code can read them
// without blocking the audio path.
//
// The transform is a radix-2 FFT when the analysis length is a power of two
// and a direct DFT otherwise (or when requested with [WithDFT]). Both paths
// produce the same magnitudes within floating-point tolerance.
package spectrum
