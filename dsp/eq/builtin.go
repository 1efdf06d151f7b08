package eq

// builtinPresets is the factory catalog for the 10-band layout.
var builtinPresets = []Preset{
	{Name: "Flat", Gains: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	{Name: "Rock", Gains: []float64{5, 4.5, 3, -1, -2, -1, 2, 3.5, 4, 4.5}},
	{Name: "Pop", Gains: []float64{3, 2.5, 1, 0, 0, 1, 2, 3, 4, 4}},
	{Name: "Jazz", Gains: []float64{3, 2, 0, -2, -1, 1, 3, 3, 2, 1}},
	{Name: "Classical", Gains: []float64{0, 0, 0, -1, -1, 0, 1, 2, 3, 2}},
	{Name: "Electronic", Gains: []float64{7, 6, 4, 0, -2, 0, 2, 4, 5, 6}},
	{Name: "Vocal Boost", Gains: []float64{-2, -2, -1, 0, 1, 3, 4, 3, 1, 0}},
	{Name: "Bass Boost", Gains: []float64{6, 5, 3, 1, 0, 0, 0, 0, 0, 0}},
	{Name: "Treble Boost", Gains: []float64{0, 0, 0, 0, 0, 0, 1, 4, 6, 6}},
	{Name: "Loudness", Gains: []float64{6, 6, 4, 1, -2, -3, -2, 4, 5, 5}},
}

// BuiltinPresets returns a copy of the factory preset catalog in display
// order.
func BuiltinPresets() []Preset {
	out := make([]Preset, len(builtinPresets))
	for i, p := range builtinPresets {
		out[i] = Preset{Name: p.Name, Gains: append([]float64(nil), p.Gains...)}
	}
	return out
}
