package domain

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/text/language"

	apperrors "github.com/louisbranch/rolltable.space/internal/platform/errors"
)

func TestRegistryCreateSeatsHost(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistryWithOptions(3*time.Second, clock.Now, sequentialCodes("HOSTSECR", "ROOM01"))

	room, err := registry.Create("host-1", "  GM  ", language.Italian)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if room.Code() != "ROOM01" {
		t.Fatalf("expected code ROOM01, got %q", room.Code())
	}
	if room.HostSecret() != "HOSTSECR" {
		t.Fatalf("expected secret HOSTSECR, got %q", room.HostSecret())
	}
	if room.Locale() != language.Italian {
		t.Fatalf("expected Italian locale, got %v", room.Locale())
	}
	if room.HostConnectionID() != "host-1" {
		t.Fatalf("expected host connection host-1, got %q", room.HostConnectionID())
	}

	players := room.Players()
	if len(players) != 1 || players[0].Nickname != "GM" || !players[0].IsHost {
		t.Fatalf("expected trimmed host entry, got %+v", players)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one room, got %d", registry.Len())
	}
}

func TestRegistryCreateRejectsEmptyNickname(t *testing.T) {
	registry := NewRegistry(time.Second)
	if _, err := registry.Create("host-1", "   ", language.AmericanEnglish); !errors.Is(err, ErrNicknameEmpty) {
		t.Fatalf("expected ErrNicknameEmpty, got %v", err)
	}
}

func TestRegistryCreateRetriesOnCodeCollision(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistryWithOptions(time.Second, clock.Now,
		sequentialCodes("SECRETA1", "SAME01", "SECRETB2", "SAME01", "FRESH2"))

	first, err := registry.Create("host-1", "GM", language.AmericanEnglish)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := registry.Create("host-2", "Other", language.AmericanEnglish)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if first.Code() != "SAME01" {
		t.Fatalf("expected first room SAME01, got %q", first.Code())
	}
	if second.Code() != "FRESH2" {
		t.Fatalf("expected collision retry to yield FRESH2, got %q", second.Code())
	}
}

func TestRegistryGetNormalizesCode(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistryWithOptions(time.Second, clock.Now, sequentialCodes("HOSTSECR", "ROOM01"))
	if _, err := registry.Create("host-1", "GM", language.AmericanEnglish); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, ok := registry.Get("  room01 "); !ok {
		t.Fatal("expected lookup with unnormalized code to succeed")
	}
	if _, ok := registry.Get("NOPE99"); ok {
		t.Fatal("expected unknown code to miss")
	}
}

func TestRegistryRemove(t *testing.T) {
	clock := newFakeClock()
	registry := NewRegistryWithOptions(time.Second, clock.Now, sequentialCodes("HOSTSECR", "ROOM01"))
	room, err := registry.Create("host-1", "GM", language.AmericanEnglish)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	registry.Remove(room.Code())
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d rooms", registry.Len())
	}
	if _, ok := registry.Get(room.Code()); ok {
		t.Fatal("expected removed room to be gone")
	}
	// Removing twice is harmless.
	registry.Remove(room.Code())
}

func TestRegistryJoinErrorCodes(t *testing.T) {
	clock := newFakeClock()
	_, room := newTestRoom(t, clock)

	_, err := room.Join("conn-2", "GM")
	if apperrors.CodeOf(err) != apperrors.CodeNicknameTaken {
		t.Fatalf("expected nickname-taken code, got %v", err)
	}
}
