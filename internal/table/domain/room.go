// Package domain owns the room/session state machine: rooms, participants,
// the roll ledger, secret requests, and host-presence bookkeeping. Every
// room guards its own state with a single mutex so protocol handlers
// observe each operation atomically.
package domain

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/text/language"

	apperrors "github.com/louisbranch/rolltable.space/internal/platform/errors"
)

// historyLimit caps the per-room ledger; the oldest entries fall off
// silently.
const historyLimit = 300

var (
	// ErrNicknameEmpty indicates a missing nickname after trimming.
	ErrNicknameEmpty = apperrors.New(apperrors.CodeNicknameEmpty, "nickname is required")
	// ErrRoomLocked indicates the room refuses new joins.
	ErrRoomLocked = apperrors.New(apperrors.CodeRoomLocked, "room is locked")
	// ErrHostSecretMismatch indicates a failed host authentication.
	ErrHostSecretMismatch = apperrors.New(apperrors.CodeHostSecretMismatch, "host secret mismatch")
	// ErrHostRequired indicates the caller is not the room's host.
	ErrHostRequired = apperrors.New(apperrors.CodeHostRequired, "host authority required")
	// ErrHostUnkickable indicates a kick aimed at the host.
	ErrHostUnkickable = apperrors.New(apperrors.CodeHostUnkickable, "the host cannot be kicked")
	// ErrTargetNotFound indicates the named participant is not in the room.
	ErrTargetNotFound = apperrors.New(apperrors.CodeTargetNotFound, "target participant not found")
	// ErrTargetIsHost indicates a secret request aimed at the host.
	ErrTargetIsHost = apperrors.New(apperrors.CodeTargetIsHost, "target must not be the host")
	// ErrRollRateLimited indicates the roll cooldown has not elapsed.
	ErrRollRateLimited = apperrors.New(apperrors.CodeRollRateLimited, "roll cooldown not elapsed")
)

// Room is one live dice table. All exported methods are safe for
// concurrent use.
type Room struct {
	code       string
	hostSecret string
	locale     language.Tag

	mu                 sync.Mutex
	locked             bool
	hostConnectionID   string
	hostNickname       string
	hostDisconnectedAt time.Time
	graceTimer         *time.Timer
	participants       map[string]*Participant
	nicknames          map[string]struct{}
	history            []Event
	secretRequests     map[string]*SecretRequest

	gate    Gate
	now     func() time.Time
	newCode func(int) (string, error)
}

// Snapshot is the state handed to a participant on join or rejoin.
type Snapshot struct {
	Players []PlayerInfo
	History []Event
	Locked  bool
}

// Code returns the room's public identifier.
func (r *Room) Code() string { return r.code }

// HostSecret returns the secret proving host authority. Callers must only
// ever send it to the host's own connection.
func (r *Room) HostSecret() string { return r.hostSecret }

// Locale returns the room's notice locale, fixed at creation.
func (r *Room) Locale() language.Tag { return r.locale }

// Locked reports whether new joins are refused.
func (r *Room) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

// HostConnectionID returns the connection currently holding host
// authority. It stays set while the host is in grace.
func (r *Room) HostConnectionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostConnectionID
}

// Players returns the broadcast-safe participant list, host first and the
// rest ordered by nickname.
func (r *Room) Players() []PlayerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playersLocked()
}

func (r *Room) playersLocked() []PlayerInfo {
	players := make([]PlayerInfo, 0, len(r.participants))
	for _, p := range r.participants {
		players = append(players, PlayerInfo{
			ConnectionID: p.ConnectionID,
			Nickname:     p.Nickname,
			IsHost:       p.IsHost,
		})
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].IsHost != players[j].IsHost {
			return players[i].IsHost
		}
		return players[i].Nickname < players[j].Nickname
	})
	return players
}

// ConnectionIDs returns every live connection in the room.
func (r *Room) ConnectionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	return ids
}

// Join registers a non-host participant and returns the snapshot the
// joiner should see.
func (r *Room) Join(connectionID, nickname string) (Snapshot, error) {
	nickname = NormalizeNickname(nickname)

	r.mu.Lock()
	defer r.mu.Unlock()

	if nickname == "" {
		return Snapshot{}, ErrNicknameEmpty
	}
	if r.locked {
		return Snapshot{}, ErrRoomLocked
	}
	if _, taken := r.nicknames[nickname]; taken {
		return Snapshot{}, apperrors.WithMetadata(apperrors.CodeNicknameTaken,
			"nickname is already in use", map[string]string{"nickname": nickname})
	}

	r.participants[connectionID] = &Participant{
		ConnectionID: connectionID,
		Nickname:     nickname,
	}
	r.nicknames[nickname] = struct{}{}

	return r.snapshotLocked(connectionID), nil
}

// RejoinHost transfers host authority to the given connection after
// validating the host secret. It reports whether the room was in grace so
// the caller can broadcast the presence change.
func (r *Room) RejoinHost(connectionID, hostSecret, nickname string) (Snapshot, bool, error) {
	nickname = NormalizeNickname(nickname)

	r.mu.Lock()
	defer r.mu.Unlock()

	if hostSecret != r.hostSecret {
		return Snapshot{}, false, ErrHostSecretMismatch
	}
	if nickname == "" {
		return Snapshot{}, false, ErrNicknameEmpty
	}
	if _, taken := r.nicknames[nickname]; taken && nickname != r.hostNickname {
		return Snapshot{}, false, apperrors.WithMetadata(apperrors.CodeNicknameTaken,
			"nickname is already in use", map[string]string{"nickname": nickname})
	}

	// Drop any stale host entry so exactly one participant holds the
	// role at every observable instant.
	if previous, ok := r.participants[r.hostConnectionID]; ok && previous.IsHost {
		delete(r.participants, previous.ConnectionID)
		delete(r.nicknames, previous.Nickname)
	}

	r.hostConnectionID = connectionID
	r.hostNickname = nickname
	r.participants[connectionID] = &Participant{
		ConnectionID: connectionID,
		Nickname:     nickname,
		IsHost:       true,
	}
	r.nicknames[nickname] = struct{}{}

	wasInGrace := r.cancelGraceLocked()
	return r.snapshotLocked(connectionID), wasInGrace, nil
}

// SetLocked toggles the join lock. Host only. Setting the current value
// again is a no-op, not an error.
func (r *Room) SetLocked(connectionID, hostSecret string, locked bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.requireHostLocked(connectionID, hostSecret); err != nil {
		return r.locked, err
	}
	r.locked = locked
	return r.locked, nil
}

// Kick removes a non-host participant. It returns the removed nickname and
// the updated player list.
func (r *Room) Kick(connectionID, hostSecret, targetConnectionID string) (string, []PlayerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.requireHostLocked(connectionID, hostSecret); err != nil {
		return "", nil, err
	}

	target, ok := r.participants[targetConnectionID]
	if !ok {
		return "", nil, ErrTargetNotFound
	}
	if target.IsHost {
		return "", nil, ErrHostUnkickable
	}

	delete(r.participants, targetConnectionID)
	delete(r.nicknames, target.Nickname)
	return target.Nickname, r.playersLocked(), nil
}

// AuthorizeRoll checks a public-roll attempt. A connection that is not a
// participant yields ok=false with no error: stale messages after a room
// change are silent no-ops.
func (r *Room) AuthorizeRoll(connectionID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connectionID]
	if !ok {
		return "", false, nil
	}
	if !r.gate.Allow(p) {
		return "", false, ErrRollRateLimited
	}
	return p.Nickname, true, nil
}

// AuthorizeHostRoll checks a host-only roll attempt. Secret mismatches and
// non-host callers are silent no-ops, matching the public-roll leniency.
func (r *Room) AuthorizeHostRoll(connectionID, hostSecret string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hostSecret != r.hostSecret {
		return "", false, nil
	}
	p, ok := r.participants[connectionID]
	if !ok || !p.IsHost {
		return "", false, nil
	}
	if !r.gate.Allow(p) {
		return "", false, ErrRollRateLimited
	}
	return p.Nickname, true, nil
}

// RecordRoll appends an event to the ledger, newest first, and hands the
// delivery callback the connections allowed to see it. Append and
// delivery run in the same critical section so feeds always follow
// ledger order.
func (r *Room) RecordRoll(event Event, deliver func(recipients []string)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append([]Event{event}, r.history...)
	if len(r.history) > historyLimit {
		r.history = r.history[:historyLimit]
	}

	if deliver == nil {
		return
	}
	recipients := make([]string, 0, len(r.participants))
	for id, p := range r.participants {
		if event.VisibleTo(p.IsHost, p.Nickname) {
			recipients = append(recipients, id)
		}
	}
	deliver(recipients)
}

// VisibleHistory returns the ledger filtered for the given viewer, newest
// first. Unknown connections see nothing.
func (r *Room) VisibleHistory(connectionID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visibleHistoryLocked(connectionID)
}

func (r *Room) visibleHistoryLocked(connectionID string) []Event {
	viewer, ok := r.participants[connectionID]
	if !ok {
		return nil
	}

	visible := make([]Event, 0, len(r.history))
	for _, event := range r.history {
		if event.VisibleTo(viewer.IsHost, viewer.Nickname) {
			visible = append(visible, event)
		}
	}
	return visible
}

// CreateSecretRequest opens a secret roll prompt aimed at a non-host
// participant. Expired requests are pruned on the way in.
func (r *Room) CreateSecretRequest(connectionID, hostSecret, targetConnectionID, note string) (SecretRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	host, err := r.requireHostLocked(connectionID, hostSecret)
	if err != nil {
		return SecretRequest{}, err
	}

	target, ok := r.participants[targetConnectionID]
	if !ok {
		return SecretRequest{}, ErrTargetNotFound
	}
	if target.IsHost {
		return SecretRequest{}, ErrTargetIsHost
	}

	now := r.now()
	for id, request := range r.secretRequests {
		if request.Expired(now) {
			delete(r.secretRequests, id)
		}
	}

	requestID, err := r.newCode(RequestIDLength)
	if err != nil {
		return SecretRequest{}, err
	}

	runes := []rune(note)
	if len(runes) > NoteMaxLength {
		note = string(runes[:NoteMaxLength])
	}

	request := SecretRequest{
		RequestID:          requestID,
		RequesterNickname:  host.Nickname,
		TargetConnectionID: target.ConnectionID,
		Note:               note,
		CreatedAt:          now,
	}
	r.secretRequests[requestID] = &request
	return request, nil
}

// AuthorizeSecretResult validates a secret-result submission. Unknown or
// expired requests and target mismatches are silent no-ops (ok=false).
// The request stays open on a rate-limit rejection so the target can
// retry after the cooldown.
func (r *Room) AuthorizeSecretResult(connectionID, requestID string) (SecretRequest, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, ok := r.secretRequests[requestID]
	if !ok {
		return SecretRequest{}, false, nil
	}
	if request.Expired(r.now()) {
		delete(r.secretRequests, requestID)
		return SecretRequest{}, false, nil
	}

	target, ok := r.participants[request.TargetConnectionID]
	if !ok || target.ConnectionID != connectionID {
		return SecretRequest{}, false, nil
	}
	if !r.gate.Allow(target) {
		return SecretRequest{}, false, ErrRollRateLimited
	}
	return *request, true, nil
}

// ConsumeSecretRequest closes a request after its roll resolved. A request
// id can never be consumed twice.
func (r *Room) ConsumeSecretRequest(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.secretRequests, requestID)
}

// ParticipantNickname resolves a connection to its nickname.
func (r *Room) ParticipantNickname(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connectionID]
	if !ok {
		return "", false
	}
	return p.Nickname, true
}

// Depart drops a departing connection from the room. When the connection
// holds the host role the grace timer is armed in the same critical
// section as the removal, so a rejoin can never slip between the two and
// leave a live timer behind.
func (r *Room) Depart(connectionID string, grace time.Duration, fire func()) (removed bool, wasHost bool, nickname string, players []PlayerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connectionID]
	if !ok {
		return false, false, "", nil
	}

	delete(r.participants, connectionID)
	delete(r.nicknames, p.Nickname)

	if connectionID == r.hostConnectionID {
		r.hostDisconnectedAt = r.now()
		if r.graceTimer != nil {
			r.graceTimer.Stop()
		}
		r.graceTimer = time.AfterFunc(grace, fire)
		return true, true, p.Nickname, r.playersLocked()
	}
	return true, false, p.Nickname, r.playersLocked()
}

// CloseOut empties the room on closure and returns the connections that
// should hear about it. Departures arriving after the close find nothing
// to remove.
func (r *Room) CloseOut() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	r.participants = make(map[string]*Participant)
	r.nicknames = make(map[string]struct{})
	r.secretRequests = make(map[string]*SecretRequest)
	return ids
}

// CancelGrace stops a pending close timer, reporting whether the room was
// in grace.
func (r *Room) CancelGrace() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelGraceLocked()
}

func (r *Room) cancelGraceLocked() bool {
	inGrace := !r.hostDisconnectedAt.IsZero()
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	r.hostDisconnectedAt = time.Time{}
	return inGrace
}

// InGrace reports whether the host is currently disconnected with the
// close timer armed.
func (r *Room) InGrace() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.hostDisconnectedAt.IsZero()
}

// GraceRemaining returns how much of the grace window is left.
func (r *Room) GraceRemaining(grace time.Duration) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hostDisconnectedAt.IsZero() {
		return 0
	}
	remaining := grace - r.now().Sub(r.hostDisconnectedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ConfirmGraceExpired is called from the timer callback. It reports
// whether the room is still in grace; a rejoin that raced the timer wins.
func (r *Room) ConfirmGraceExpired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hostDisconnectedAt.IsZero() {
		return false
	}
	r.graceTimer = nil
	return true
}

func (r *Room) requireHostLocked(connectionID, hostSecret string) (*Participant, error) {
	if hostSecret != r.hostSecret {
		return nil, ErrHostSecretMismatch
	}
	p, ok := r.participants[connectionID]
	if !ok || !p.IsHost {
		return nil, ErrHostRequired
	}
	return p, nil
}

func (r *Room) snapshotLocked(connectionID string) Snapshot {
	return Snapshot{
		Players: r.playersLocked(),
		History: r.visibleHistoryLocked(connectionID),
		Locked:  r.locked,
	}
}
