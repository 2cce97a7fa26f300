package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutStatusWidth is the minimum width to show the status column in
	// the query list.
	LayoutStatusWidth = 110
)

// Fixed rows around the mounted view: header, command bar and alert line.
const chromeRows = 3

// Timing constants.
const (
	// DefaultUIInterval is how often the UI re-reads the status store.
	DefaultUIInterval = time.Second
)
