// Package design provides RBJ audio-EQ-cookbook coefficient designers for
// the eight biquad shapes used by the equalizer.
//
// All math is done in float64. Invalid frequencies (outside (0, fs/2)) or
// sample rates yield the identity section instead of NaN coefficients, so a
// band can never destabilize the cascade. Shelves use the cookbook slope
// form with a fixed slope S = 1.
//
// Each [Type] has a stable integer code (0..7) used by control surfaces;
// [TypeFromCode] maps unknown codes to [Peaking].
package design
