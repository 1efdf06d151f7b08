// Command eqchain runs audio through the equalizer chain and serves its
// control API.
//
// Usage:
//
//	eqchain process [flags] IN OUT
//	eqchain serve [flags]
//	eqchain presets [flags]
//	eqchain bands [flags]
//
// Examples:
//
//	eqchain process --preset rock song.mp3 out.wav
//	eqchain process --gains 3,2,0,0,0,0,0,1,2,3 --fx in.wav out.aiff
//	eqchain serve --addr :9000 --input loop.ogg
//	eqchain bands --preset "bass boost" --points 24
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
