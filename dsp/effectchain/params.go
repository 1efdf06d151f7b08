package effectchain

import "math"

// Params holds the parameters for a single chain node.
type Params struct {
	ID       string             `json:"id" yaml:"id"`
	Type     string             `json:"type" yaml:"type"`
	Bypassed bool               `json:"bypassed,omitempty" yaml:"bypassed,omitempty"`
	Num      map[string]float64 `json:"num,omitempty" yaml:"num,omitempty"`
	Str      map[string]string  `json:"str,omitempty" yaml:"str,omitempty"`
}

// GetNum safely extracts a numeric parameter, returning def if missing or invalid.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// GetStr returns a string parameter or def.
func (p Params) GetStr(key, def string) string {
	if v, ok := p.Str[key]; ok {
		return v
	}
	return def
}
