package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I) so codes
// survive being read aloud or copied by hand.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Identifier lengths for the three generated code kinds.
const (
	RoomCodeLength   = 6
	HostSecretLength = 8
	RequestIDLength  = 10
)

// NicknameMaxLength caps nicknames after trimming.
const NicknameMaxLength = 30

// NewCode generates a random identifier of the given length drawn from the
// restricted alphabet.
func NewCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	// The alphabet holds exactly 32 characters, so masking to 5 bits
	// keeps the draw uniform.
	out := make([]byte, length)
	for i, b := range raw {
		out[i] = codeAlphabet[b&31]
	}
	return string(out), nil
}

// NormalizeRoomCode canonicalizes a client-supplied room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeSecret canonicalizes a client-supplied host secret or request id.
func NormalizeSecret(secret string) string {
	return strings.ToUpper(strings.TrimSpace(secret))
}

// NormalizeNickname trims a nickname and caps it at NicknameMaxLength runes.
func NormalizeNickname(nickname string) string {
	nickname = strings.TrimSpace(nickname)
	runes := []rune(nickname)
	if len(runes) > NicknameMaxLength {
		return string(runes[:NicknameMaxLength])
	}
	return nickname
}
