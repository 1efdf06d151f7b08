// Package dynamics provides the level-dependent gain stages used by the
// processing chain.
//
// Included processors:
//   - Compressor: soft-knee downward compressor with log2-domain gain
//     computation and a stereo-linked peak detector.
//   - Expander: downward expander with a gain floor, the gain computer of the
//     noise reducer.
//   - Limiter: instant-attack peak limiter with optional soft knee.
//
// All processors work on float32 blocks with float64 envelope state. They
// are not safe for concurrent use; parameter setters and processing must be
// serialized by the caller.
//
// Building with the fastmath tag swaps the log2/exp2 helpers for the
// algo-approx approximations.
package dynamics
