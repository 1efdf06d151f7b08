// Package effectchain runs an ordered list of polymorphic effect stages.
//
// Each node of a chain is created from a [Registry] by effect type and
// configured from loosely typed [Params]. Nodes run in list order; a
// bypassed node passes audio through untouched, and a disabled chain copies
// its input to its output.
//
// Loading a new node list reuses the stages of nodes whose ID and type are
// unchanged, so re-applying the same configuration never allocates stages or
// loses their state.
package effectchain
