package domain

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/text/language"
)

// maxCodeAttempts bounds the retry loop for room code allocation. With a
// 32^6 code space, hitting the cap means something is badly wrong.
const maxCodeAttempts = 16

// Registry holds every live room, keyed by room code.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	cooldown time.Duration
	now      func() time.Time
	newCode  func(int) (string, error)
}

// NewRegistry creates a registry whose rooms enforce the given roll
// cooldown.
func NewRegistry(cooldown time.Duration) *Registry {
	return NewRegistryWithOptions(cooldown, time.Now, NewCode)
}

// NewRegistryWithOptions creates a registry with an injected clock and
// code generator for tests.
func NewRegistryWithOptions(cooldown time.Duration, now func() time.Time, newCode func(int) (string, error)) *Registry {
	if now == nil {
		now = time.Now
	}
	if newCode == nil {
		newCode = NewCode
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		cooldown: cooldown,
		now:      now,
		newCode:  newCode,
	}
}

// Create allocates a room with a fresh code and host secret and seats the
// creating connection as host.
func (g *Registry) Create(hostConnectionID, nickname string, locale language.Tag) (*Room, error) {
	nickname = NormalizeNickname(nickname)
	if nickname == "" {
		return nil, ErrNicknameEmpty
	}

	hostSecret, err := g.newCode(HostSecretLength)
	if err != nil {
		return nil, fmt.Errorf("generate host secret: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var code string
	for attempt := 0; ; attempt++ {
		if attempt >= maxCodeAttempts {
			return nil, fmt.Errorf("allocate room code: %d collisions", attempt)
		}
		code, err = g.newCode(RoomCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, exists := g.rooms[code]; !exists {
			break
		}
	}

	room := &Room{
		code:       code,
		hostSecret: hostSecret,
		locale:     locale,
		participants: map[string]*Participant{
			hostConnectionID: {
				ConnectionID: hostConnectionID,
				Nickname:     nickname,
				IsHost:       true,
			},
		},
		nicknames:        map[string]struct{}{nickname: {}},
		secretRequests:   make(map[string]*SecretRequest),
		hostConnectionID: hostConnectionID,
		hostNickname:     nickname,
		gate:             NewGateWithClock(g.cooldown, g.now),
		now:              g.now,
		newCode:          g.newCode,
	}
	g.rooms[code] = room
	return room, nil
}

// Get looks up a room by its normalized code.
func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[NormalizeRoomCode(code)]
	return room, ok
}

// Remove deletes a room and stops its pending close timer, if any.
func (g *Registry) Remove(code string) {
	g.mu.Lock()
	room, ok := g.rooms[code]
	if ok {
		delete(g.rooms, code)
	}
	g.mu.Unlock()

	if ok {
		room.CancelGrace()
	}
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}
