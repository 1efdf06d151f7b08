// Package eq implements the multi-band parametric equalizer: an ordered
// cascade of biquad bands followed by a master gain, with a bypass switch.
//
// # Threads
//
// An Equalizer has two callers. The audio goroutine calls [Equalizer.Process]
// and [Equalizer.ProcessStereo]; these never block, never allocate and never
// take a lock. Control goroutines call the setters, the transaction bracket
// and the preset functions; these are serialized by a mutex that the audio
// path does not touch.
//
// Band coefficients are published as an immutable snapshot behind an atomic
// pointer. The audio goroutine loads the pointer once per block, so it sees
// either the previous or the next coefficient set, never a partial one.
//
// # Transactions
//
// [Equalizer.BeginParameterUpdate] and [Equalizer.EndParameterUpdate] nest.
// While the depth is above zero, setters only record the new parameter and
// mark the band dirty. When the outermost bracket closes every dirty band is
// redesigned exactly once and a single snapshot is published.
package eq
