package effectchain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-eqchain/dsp/core"
)

var (
	// ErrUnknownEffect is returned when a node references an unregistered effect type.
	ErrUnknownEffect = errors.New("unknown effect type")
	// ErrLayoutChanged is returned by Retune when the node IDs or types
	// differ from the loaded chain.
	ErrLayoutChanged = errors.New("effectchain: node layout changed")
)

type node struct {
	params Params
	stage  Stage
}

// Chain owns an ordered list of effect stages. It is not safe for
// concurrent use.
type Chain struct {
	ctx      Context
	registry *Registry
	enabled  bool

	nodes []*node
}

// New creates an empty, enabled Chain with the given context and registry.
func New(ctx Context, registry *Registry) *Chain {
	return &Chain{
		ctx:      ctx,
		registry: registry,
		enabled:  true,
	}
}

// SetContext updates the chain context and reconfigures every node.
func (c *Chain) SetContext(ctx Context) error {
	c.ctx = ctx
	for _, n := range c.nodes {
		if err := n.stage.Configure(ctx, n.params); err != nil {
			return fmt.Errorf("effectchain: configure node %q (%s): %w", n.params.ID, n.params.Type, err)
		}
	}
	return nil
}

// Context returns the current chain context.
func (c *Chain) Context() Context {
	return c.ctx
}

// SetEnabled switches the whole chain on or off.
func (c *Chain) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Enabled reports whether the chain processes audio.
func (c *Chain) Enabled() bool {
	return c.enabled
}

// Len returns the number of nodes.
func (c *Chain) Len() int {
	return len(c.nodes)
}

// Nodes returns the parameters of every node in processing order.
func (c *Chain) Nodes() []Params {
	out := make([]Params, len(c.nodes))
	for i, n := range c.nodes {
		out[i] = n.params
	}
	return out
}

// Stage returns the stage of the node with the given ID, or nil.
func (c *Chain) Stage(id string) Stage {
	for _, n := range c.nodes {
		if n.params.ID == id {
			return n.stage
		}
	}
	return nil
}

// Load replaces the node list. Nodes whose ID and type match an existing
// node keep their stage (and its state) and are only reconfigured; new or
// type-changed nodes are created from the registry. Node IDs must be unique
// and non-empty. On error the node list is left unchanged.
func (c *Chain) Load(list []Params) error {
	existing := make(map[string]*node, len(c.nodes))
	for _, n := range c.nodes {
		existing[n.params.ID] = n
	}

	seen := make(map[string]struct{}, len(list))
	next := make([]*node, 0, len(list))
	for _, p := range list {
		if p.ID == "" {
			return fmt.Errorf("effectchain: node of type %q has no id", p.Type)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("effectchain: duplicate node id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		n := existing[p.ID]
		if n == nil || n.params.Type != p.Type {
			stage, err := c.newStage(p.Type)
			if err != nil {
				return err
			}
			n = &node{stage: stage}
		} else {
			n = &node{stage: n.stage}
		}

		if err := n.stage.Configure(c.ctx, p); err != nil {
			return fmt.Errorf("effectchain: configure node %q (%s): %w", p.ID, p.Type, err)
		}
		n.params = p
		next = append(next, n)
	}

	c.nodes = next
	return nil
}

// Matches reports whether list has the node IDs and types of the loaded
// chain, in the same order.
func (c *Chain) Matches(list []Params) bool {
	if len(list) != len(c.nodes) {
		return false
	}
	for i, p := range list {
		if n := c.nodes[i]; n.params.ID != p.ID || n.params.Type != p.Type {
			return false
		}
	}
	return true
}

// Retune reconfigures the loaded nodes from list without creating stages or
// allocating, which makes it usable between audio blocks. list must match
// the loaded layout; use Load for structural changes.
func (c *Chain) Retune(list []Params) error {
	if !c.Matches(list) {
		return ErrLayoutChanged
	}
	for i, p := range list {
		n := c.nodes[i]
		if err := n.stage.Configure(c.ctx, p); err != nil {
			return fmt.Errorf("effectchain: configure node %q (%s): %w", p.ID, p.Type, err)
		}
		n.params = p
	}
	return nil
}

// LoadJSON parses a JSON array of node params and loads it.
func (c *Chain) LoadJSON(data []byte) error {
	var list []Params
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("effectchain: parse node list: %w", err)
	}
	return c.Load(list)
}

// Reset clears the processing state of every stage.
func (c *Chain) Reset() {
	for _, n := range c.nodes {
		n.stage.Reset()
	}
}

// ProcessMono runs src through every active node into dst. dst may alias
// src. Only the common length is processed.
func (c *Chain) ProcessMono(dst, src []float32) {
	n := core.CopyInto(dst, src)
	if !c.enabled {
		return
	}
	dst = dst[:n]
	for _, nd := range c.nodes {
		if !nd.params.Bypassed {
			nd.stage.ProcessMono(dst, dst)
		}
	}
}

// ProcessStereo is the two-channel form of ProcessMono.
func (c *Chain) ProcessStereo(dstL, dstR, srcL, srcR []float32) {
	n := core.CommonLen(dstL, dstR, srcL, srcR)
	dstL, dstR = dstL[:n], dstR[:n]
	copy(dstL, srcL[:n])
	copy(dstR, srcR[:n])
	if !c.enabled {
		return
	}
	for _, nd := range c.nodes {
		if !nd.params.Bypassed {
			nd.stage.ProcessStereo(dstL, dstR, dstL, dstR)
		}
	}
}

func (c *Chain) newStage(effectType string) (Stage, error) {
	factory := c.registry.Lookup(effectType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, effectType)
	}

	stage, err := factory(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("effectchain: create %s: %w", effectType, err)
	}
	return stage, nil
}
