package bridge

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/cwbudde/algo-eqchain/dsp/eq"
)

// Catalog is the set of named presets: the built-ins in their fixed order
// followed by user presets in insertion order. Lookups ignore case.
type Catalog struct {
	mu      sync.RWMutex
	presets []eq.Preset
	index   map[string]int
	builtin int
}

// NewCatalog returns a catalog holding the built-in presets.
func NewCatalog() *Catalog {
	c := &Catalog{index: make(map[string]int)}
	for _, p := range eq.BuiltinPresets() {
		c.index[foldName(p.Name)] = len(c.presets)
		c.presets = append(c.presets, p)
	}
	c.builtin = len(c.presets)
	return c
}

func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Lookup returns a copy of the named preset.
func (c *Catalog) Lookup(name string) (eq.Preset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[foldName(name)]
	if !ok {
		return eq.Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return clonePreset(c.presets[i]), nil
}

// Names returns the preset names in catalog order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.presets))
	for i, p := range c.presets {
		names[i] = p.Name
	}
	return names
}

// Presets returns copies of all presets in catalog order.
func (c *Catalog) Presets() []eq.Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]eq.Preset, len(c.presets))
	for i, p := range c.presets {
		out[i] = clonePreset(p)
	}
	return out
}

// IsBuiltin reports whether name refers to a built-in preset.
func (c *Catalog) IsBuiltin(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[foldName(name)]
	return ok && i < c.builtin
}

// Add stores a user preset, replacing a user preset with the same name.
// Built-in presets cannot be replaced.
func (c *Catalog) Add(p eq.Preset) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("bridge: add preset: %w", err)
	}

	key := foldName(p.Name)
	p = clonePreset(p)

	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[key]; ok {
		if i < c.builtin {
			return fmt.Errorf("%w: %q", ErrBuiltinPreset, p.Name)
		}
		c.presets[i] = p
		return nil
	}

	c.index[key] = len(c.presets)
	c.presets = append(c.presets, p)
	return nil
}

// Remove deletes a user preset.
func (c *Catalog) Remove(name string) error {
	key := foldName(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	if i < c.builtin {
		return fmt.Errorf("%w: %q", ErrBuiltinPreset, name)
	}

	c.presets = append(c.presets[:i], c.presets[i+1:]...)
	delete(c.index, key)
	for j := i; j < len(c.presets); j++ {
		c.index[foldName(c.presets[j].Name)] = j
	}
	return nil
}

func clonePreset(p eq.Preset) eq.Preset {
	return eq.Preset{Name: p.Name, Gains: append([]float64(nil), p.Gains...)}
}
