// Package pipeline runs the complete processing chain for one audio stream:
//
//	noise reducer -> spectrum snapshot -> effect chain -> safety -> equalizer -> clamp
//
// A Pipeline is driven by a single audio goroutine. The equalizer is
// controlled directly through its own thread-safe API. The remaining stage
// settings are published with [Pipeline.Configure] from any goroutine and
// picked up by the audio goroutine at the start of the next block.
package pipeline
