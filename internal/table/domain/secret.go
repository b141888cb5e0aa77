package domain

import "time"

// SecretRequestTTL bounds how long an unanswered secret roll request stays
// open. Without it, a request whose target never responds would sit in
// the room map forever.
const SecretRequestTTL = 10 * time.Minute

// NoteMaxLength caps the free-text note attached to a secret request.
const NoteMaxLength = 120

// SecretRequest is an open host-initiated prompt for a hidden roll.
type SecretRequest struct {
	RequestID          string
	RequesterNickname  string
	TargetConnectionID string
	Note               string
	CreatedAt          time.Time
}

// Expired reports whether the request has outlived SecretRequestTTL.
func (r SecretRequest) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) >= SecretRequestTTL
}
