// Package effects provides the non-equalizer stages of the processing chain.
//
//   - Delay: stereo feedback delay with dry/wet mix.
//   - NoiseReducer: optional high-pass pre-filter followed by a downward
//     expander that pushes the noise floor down without gating it shut.
//   - SafetyEngine: DC removal, feedback detection, peak limiting and a final
//     hard clamp, with a per-block report readable from other goroutines.
//
// Level-dependent gain stages live in the dynamics subpackage.
//
// Every stage works on caller-owned float32 buffers and never allocates on
// its processing path. Stages are not safe for concurrent use; the pipeline
// applies configuration changes between blocks on the audio goroutine.
package effects
