// Package biquad provides the second-order IIR filter runtime used by the
// equalizer cascade.
//
// A [Filter] holds one normalized coefficient set and two independent
// direct-form-II delay lines (left and right). Coefficient math is done in
// float64; samples are float32 with float64 accumulation. Feedback state is
// flushed to zero when it decays below the denormal range.
//
// Block processing is dispatched at first use to the best kernel registered
// for the running CPU. All kernels produce the scalar recursion's result;
// the block-of-4 kernel only unrolls it and runs the two channels in
// lockstep.
//
// Coefficient design (RBJ cookbook shapes) lives in dsp/filter/design.
package biquad
