package tui

import (
	"time"

	"github.com/bassamadnan/contractnotes/download"
)

// A message carrying one progress event from the downloader.
type EventMsg download.Event

// A message for timed status updates.
type StatusTickMsg struct{ Time time.Time }

// Message to signal that the event channel is closed and the run is over.
type RunStoppedMsg struct{}

// Message to clear a temporary status message after a timeout.
type clearTempStatusMsg struct{}
