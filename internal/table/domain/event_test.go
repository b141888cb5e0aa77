package domain

import "testing"

func TestEventVisibleTo(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		isHost   bool
		nickname string
		want     bool
	}{
		{"public to player", Event{Visibility: VisibilityPublic, Author: "Mira"}, false, "Tam", true},
		{"public to host", Event{Visibility: VisibilityPublic, Author: "Mira"}, true, "GM", true},
		{"host roll hidden from player", Event{Visibility: VisibilityHost, Author: "GM"}, false, "Mira", false},
		{"host roll visible to host", Event{Visibility: VisibilityHost, Author: "GM"}, true, "GM", true},
		{"secret visible to author", Event{Visibility: VisibilitySecret, Author: "Mira"}, false, "Mira", true},
		{"secret visible to host", Event{Visibility: VisibilitySecret, Author: "Mira"}, true, "GM", true},
		{"secret hidden from bystander", Event{Visibility: VisibilitySecret, Author: "Mira"}, false, "Tam", false},
		{"unknown visibility hidden", Event{Visibility: Visibility("x"), Author: "Mira"}, true, "Mira", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.VisibleTo(tt.isHost, tt.nickname); got != tt.want {
				t.Fatalf("VisibleTo(%v, %q) = %v, want %v", tt.isHost, tt.nickname, got, tt.want)
			}
		})
	}
}
