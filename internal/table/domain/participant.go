package domain

import "time"

// Participant is one live connection inside a room.
type Participant struct {
	ConnectionID string
	Nickname     string
	IsHost       bool
	// LastRollAt is the zero time until the participant's first
	// accepted roll.
	LastRollAt time.Time
}

// PlayerInfo is the broadcast-safe view of a participant. It never
// carries the host secret or rate-limit bookkeeping.
type PlayerInfo struct {
	ConnectionID string
	Nickname     string
	IsHost       bool
}
