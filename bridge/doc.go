// Package bridge is the control-plane surface of an equalizer chain.
//
// A [Bridge] holds the user-facing state (enabled flag, master gain, band
// gains, stage settings, selected preset) and marks it pending on every
// change. The owner of the audio pipeline calls [Bridge.Sync] once per block
// or callback cycle; Sync drains a pending update into the pipeline at most
// once. State changes are reported on a bounded [Events] channel that is
// consumed on its own goroutine and never blocks the caller.
//
// A [Registry] owns running instances and hands out opaque handles, so that
// no process-wide mutable state is needed.
package bridge
