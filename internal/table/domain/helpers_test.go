package domain

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// sequentialCodes returns a generator that hands out the given codes in
// order, then falls back to numbered ones.
func sequentialCodes(codes ...string) func(int) (string, error) {
	i := 0
	return func(length int) (string, error) {
		if i < len(codes) {
			code := codes[i]
			i++
			return code, nil
		}
		i++
		return fmt.Sprintf("GEN%03d", i), nil
	}
}

// newTestRoom creates a registry-backed room with a deterministic clock
// and code generator. The host joins as "GM" on connection "host-1".
func newTestRoom(t interface{ Fatalf(string, ...any) }, clock *fakeClock, codes ...string) (*Registry, *Room) {
	if len(codes) == 0 {
		codes = []string{"HOSTSECR", "ROOM01", "REQUEST001"}
	}
	registry := NewRegistryWithOptions(3*time.Second, clock.Now, sequentialCodes(codes...))
	room, err := registry.Create("host-1", "GM", language.AmericanEnglish)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return registry, room
}
