package ui

import "github.com/cwbudde/algo-reverb/dsp/effects/reverb"

// ProgressMsg reports how far a render has come.
type ProgressMsg struct {
	Done  int
	Total int
	Stats reverb.Stats
}

// DoneMsg ends the render; Err is nil on success.
type DoneMsg struct {
	Err error
}
