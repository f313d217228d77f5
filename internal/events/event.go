// Package events defines the notifications the game engine emits toward
// the host layer and the hub that fans them out to subscribers.
package events

import (
	"errors"
	"fmt"
	"time"
)

// Kind denotes the type of notification carried by an Event.
type Kind string

// Supported event kinds.
const (
	KindLoading     Kind = "LOADING"
	KindMatch       Kind = "MATCH"
	KindWin         Kind = "WIN"
	KindLoadFailure Kind = "LOAD_FAILURE"
)

// Event is a single engine notification.
type Event struct {
	// Kind denotes which notification this is.
	Kind Kind `json:"kind"`
	// GameID scopes the event to a session.
	GameID string `json:"game_id"`
	// TS is the timestamp recorded by the emitter.
	TS time.Time `json:"ts"`
	// Loading carries the loading flag for KindLoading.
	Loading bool `json:"loading,omitempty"`
	// Title is the matched cell title (KindMatch) or the failed article
	// (KindLoadFailure).
	Title string `json:"title,omitempty"`
	// Lines carries the winning line IDs for KindWin.
	Lines []string `json:"lines,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.GameID == "" {
		return errors.New("game id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindLoading:
	case KindMatch, KindLoadFailure:
		if e.Title == "" {
			return fmt.Errorf("%s requires a title", e.Kind)
		}
	case KindWin:
		if len(e.Lines) == 0 {
			return errors.New("win requires at least one line")
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	return nil
}
