package server

import "encoding/json"

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details,omitempty"`
}

// Inbound payloads.

type createPayload struct {
	Nickname string `json:"nickname"`
	Locale   string `json:"locale,omitempty"`
}

type joinPayload struct {
	RoomCode string `json:"room_code"`
	Nickname string `json:"nickname"`
}

type rejoinHostPayload struct {
	RoomCode   string `json:"room_code"`
	HostSecret string `json:"host_secret"`
	Nickname   string `json:"nickname"`
}

type lockPayload struct {
	RoomCode   string `json:"room_code"`
	HostSecret string `json:"host_secret"`
	Locked     bool   `json:"locked"`
}

type kickPayload struct {
	RoomCode           string `json:"room_code"`
	HostSecret         string `json:"host_secret"`
	TargetConnectionID string `json:"target_connection_id"`
}

type rollPayload struct {
	RoomCode  string      `json:"room_code"`
	Selection map[int]int `json:"selection"`
}

type hostRollPayload struct {
	RoomCode   string      `json:"room_code"`
	HostSecret string      `json:"host_secret"`
	Selection  map[int]int `json:"selection"`
}

type secretRequestPayload struct {
	RoomCode           string `json:"room_code"`
	HostSecret         string `json:"host_secret"`
	TargetConnectionID string `json:"target_connection_id"`
	Note               string `json:"note,omitempty"`
}

type secretResultPayload struct {
	RoomCode  string      `json:"room_code"`
	RequestID string      `json:"request_id"`
	Selection map[int]int `json:"selection"`
}

type pingPayload struct {
	T0 int64 `json:"t0"`
}

// Outbound payloads.

type playerInfo struct {
	ConnectionID string `json:"connection_id"`
	Nickname     string `json:"nickname"`
	IsHost       bool   `json:"is_host"`
}

type createdPayload struct {
	RoomCode     string       `json:"room_code"`
	HostSecret   string       `json:"host_secret"`
	ConnectionID string       `json:"connection_id"`
	Locale       string       `json:"locale"`
	Locked       bool         `json:"locked"`
	Players      []playerInfo `json:"players"`
	ServerTime   string       `json:"server_time"`
}

type joinedPayload struct {
	RoomCode     string       `json:"room_code"`
	ConnectionID string       `json:"connection_id"`
	Nickname     string       `json:"nickname"`
	IsHost       bool         `json:"is_host"`
	// HostSecret is set only on the host's own rejoin acknowledgement.
	HostSecret string       `json:"host_secret,omitempty"`
	Locked     bool         `json:"locked"`
	Players    []playerInfo `json:"players"`
	History    []rollEvent  `json:"history"`
	ServerTime string       `json:"server_time"`
}

type joinDeniedPayload struct {
	RoomCode string `json:"room_code,omitempty"`
	Code     string `json:"code"`
	Reason   string `json:"reason"`
}

type playersPayload struct {
	RoomCode string       `json:"room_code"`
	Players  []playerInfo `json:"players"`
	Notice   string       `json:"notice,omitempty"`
}

type lockStatePayload struct {
	RoomCode string `json:"room_code"`
	Locked   bool   `json:"locked"`
}

type presencePayload struct {
	RoomCode string `json:"room_code"`
	State    string `json:"state"`
	// GraceRemainingMS is set while State is "host_grace".
	GraceRemainingMS int64  `json:"grace_remaining_ms,omitempty"`
	Notice           string `json:"notice,omitempty"`
}

type closedPayload struct {
	RoomCode string `json:"room_code"`
	Reason   string `json:"reason"`
}

type rollEvent struct {
	Visibility  string           `json:"visibility"`
	Author      string           `json:"author"`
	Label       string           `json:"label"`
	Icons       map[int][]string `json:"icons"`
	Successes   map[int]int      `json:"successes"`
	Failures    int              `json:"failures"`
	RequestedBy string           `json:"requested_by,omitempty"`
	RolledAt    string           `json:"rolled_at"`
}

type rollFeedPayload struct {
	RoomCode string    `json:"room_code"`
	Event    rollEvent `json:"event"`
}

type secretPromptPayload struct {
	RoomCode    string `json:"room_code"`
	RequestID   string `json:"request_id"`
	RequestedBy string `json:"requested_by"`
	Note        string `json:"note,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type pongPayload struct {
	T0         int64  `json:"t0"`
	ServerTime string `json:"server_time"`
}

// Presence states carried by table.presence frames.
const (
	presenceHostOnline = "host_online"
	presenceHostGrace  = "host_grace"
)
