package domain

import (
	"time"

	"github.com/louisbranch/rolltable.space/internal/core/dice"
)

// Visibility scopes who may see a roll event.
type Visibility string

const (
	// VisibilityPublic events are visible to every room participant.
	VisibilityPublic Visibility = "public"
	// VisibilityHost events are visible to the host only.
	VisibilityHost Visibility = "host"
	// VisibilitySecret events are visible to the host and their author.
	VisibilitySecret Visibility = "secret"
)

// Event is an immutable ledger entry for one resolved roll.
type Event struct {
	Visibility Visibility
	Author     string
	Selection  dice.Selection
	Label      string
	Result     dice.Result
	// RequestedBy names the host who prompted a secret roll. Empty for
	// the other visibilities.
	RequestedBy string
	RolledAt    time.Time
}

// VisibleTo reports whether a viewer with the given role and nickname may
// see this event.
func (e Event) VisibleTo(isHost bool, nickname string) bool {
	switch e.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityHost:
		return isHost
	case VisibilitySecret:
		return isHost || e.Author == nickname
	default:
		return false
	}
}
