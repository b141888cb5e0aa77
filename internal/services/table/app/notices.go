package server

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Room notices are the only user-facing strings the service emits; they
// follow the room's locale chosen at creation.

func noticeRoomClosed(locale language.Tag) string {
	if locale == language.Italian {
		return "Il tavolo è stato chiuso perché il GM non è tornato."
	}
	return "The table closed because the host did not return."
}

func noticeKicked(locale language.Tag, nickname string) string {
	if locale == language.Italian {
		return fmt.Sprintf("%s è stato rimosso dal tavolo.", nickname)
	}
	return fmt.Sprintf("%s was removed from the table.", nickname)
}

func noticeKickedTarget(locale language.Tag) string {
	if locale == language.Italian {
		return "Sei stato rimosso dal tavolo."
	}
	return "You were removed from the table."
}

func noticeLeft(locale language.Tag, nickname string) string {
	if locale == language.Italian {
		return fmt.Sprintf("%s ha lasciato il tavolo.", nickname)
	}
	return fmt.Sprintf("%s left the table.", nickname)
}

func noticeJoined(locale language.Tag, nickname string) string {
	if locale == language.Italian {
		return fmt.Sprintf("%s si è unito al tavolo.", nickname)
	}
	return fmt.Sprintf("%s joined the table.", nickname)
}

func noticeHostGrace(locale language.Tag, remaining time.Duration) string {
	remaining = remaining.Round(time.Second)
	if locale == language.Italian {
		return fmt.Sprintf("Il GM si è disconnesso. Il tavolo chiude tra %s se non ritorna.", remaining)
	}
	return fmt.Sprintf("The host disconnected. The table closes in %s unless they return.", remaining)
}

func noticeHostReturned(locale language.Tag) string {
	if locale == language.Italian {
		return "Il GM è tornato."
	}
	return "The host is back."
}
