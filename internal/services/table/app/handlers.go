package server

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/rolltable.space/internal/core/dice"
	apperrors "github.com/louisbranch/rolltable.space/internal/platform/errors"
	"github.com/louisbranch/rolltable.space/internal/platform/i18n"
	"github.com/louisbranch/rolltable.space/internal/table/domain"
)

func (h *hub) handleCreate(session *wsSession, frame wsFrame) {
	var payload createPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid create payload")
		return
	}

	locale := i18n.Resolve(payload.Locale)
	room, err := h.registry.Create(session.connectionID, payload.Nickname, locale)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	h.moveToRoom(session, room)

	players := toWirePlayers(room.Players())
	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.created",
		RequestID: frame.RequestID,
		Payload: mustJSON(createdPayload{
			RoomCode:     room.Code(),
			HostSecret:   room.HostSecret(),
			ConnectionID: session.connectionID,
			Locale:       locale.String(),
			Locked:       room.Locked(),
			Players:      players,
			ServerTime:   h.now().UTC().Format(time.RFC3339),
		}),
	})
}

func (h *hub) handleJoin(session *wsSession, frame wsFrame) {
	var payload joinPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid join payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		h.writeJoinDenied(session, frame.RequestID, payload.RoomCode,
			apperrors.New(apperrors.CodeRoomNotFound, "room not found"))
		return
	}

	snapshot, err := room.Join(session.connectionID, payload.Nickname)
	if err != nil {
		h.writeJoinDenied(session, frame.RequestID, room.Code(), err)
		return
	}

	h.moveToRoom(session, room)

	nickname, _ := room.ParticipantNickname(session.connectionID)
	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			RoomCode:     room.Code(),
			ConnectionID: session.connectionID,
			Nickname:     nickname,
			Locked:       snapshot.Locked,
			Players:      toWirePlayers(snapshot.Players),
			History:      toWireEvents(snapshot.History),
			ServerTime:   h.now().UTC().Format(time.RFC3339),
		}),
	})

	h.broadcastExcept(room, session.connectionID, wsFrame{
		Type: "table.players",
		Payload: mustJSON(playersPayload{
			RoomCode: room.Code(),
			Players:  toWirePlayers(snapshot.Players),
			Notice:   noticeJoined(room.Locale(), nickname),
		}),
	})
}

func (h *hub) handleRejoinHost(session *wsSession, frame wsFrame) {
	var payload rejoinHostPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid rejoin payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		h.writeJoinDenied(session, frame.RequestID, payload.RoomCode,
			apperrors.New(apperrors.CodeRoomNotFound, "room not found"))
		return
	}

	snapshot, wasInGrace, err := room.RejoinHost(session.connectionID,
		domain.NormalizeSecret(payload.HostSecret), payload.Nickname)
	if err != nil {
		h.writeJoinDenied(session, frame.RequestID, room.Code(), err)
		return
	}

	h.moveToRoom(session, room)

	nickname, _ := room.ParticipantNickname(session.connectionID)
	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.joined",
		RequestID: frame.RequestID,
		Payload: mustJSON(joinedPayload{
			RoomCode:     room.Code(),
			ConnectionID: session.connectionID,
			Nickname:     nickname,
			IsHost:       true,
			HostSecret:   room.HostSecret(),
			Locked:       snapshot.Locked,
			Players:      toWirePlayers(snapshot.Players),
			History:      toWireEvents(snapshot.History),
			ServerTime:   h.now().UTC().Format(time.RFC3339),
		}),
	})

	h.broadcastExcept(room, session.connectionID, wsFrame{
		Type: "table.players",
		Payload: mustJSON(playersPayload{
			RoomCode: room.Code(),
			Players:  toWirePlayers(snapshot.Players),
		}),
	})
	if wasInGrace {
		h.broadcast(room.ConnectionIDs(), wsFrame{
			Type: "table.presence",
			Payload: mustJSON(presencePayload{
				RoomCode: room.Code(),
				State:    presenceHostOnline,
				Notice:   noticeHostReturned(room.Locale()),
			}),
		})
	}
}

func (h *hub) handleLock(session *wsSession, frame wsFrame) {
	var payload lockPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid lock payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		_ = writeDomainError(session.peer, frame.RequestID,
			apperrors.New(apperrors.CodeRoomNotFound, "room not found"))
		return
	}

	locked, err := room.SetLocked(session.connectionID,
		domain.NormalizeSecret(payload.HostSecret), payload.Locked)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	h.broadcast(room.ConnectionIDs(), wsFrame{
		Type: "table.lock_state",
		Payload: mustJSON(lockStatePayload{
			RoomCode: room.Code(),
			Locked:   locked,
		}),
	})
}

func (h *hub) handleKick(session *wsSession, frame wsFrame) {
	var payload kickPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid kick payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		_ = writeDomainError(session.peer, frame.RequestID,
			apperrors.New(apperrors.CodeRoomNotFound, "room not found"))
		return
	}

	nickname, players, err := room.Kick(session.connectionID,
		domain.NormalizeSecret(payload.HostSecret), payload.TargetConnectionID)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	h.sendTo(payload.TargetConnectionID, wsFrame{
		Type: "table.closed",
		Payload: mustJSON(closedPayload{
			RoomCode: room.Code(),
			Reason:   noticeKickedTarget(room.Locale()),
		}),
	})
	h.broadcast(room.ConnectionIDs(), wsFrame{
		Type: "table.players",
		Payload: mustJSON(playersPayload{
			RoomCode: room.Code(),
			Players:  toWirePlayers(players),
			Notice:   noticeKicked(room.Locale(), nickname),
		}),
	})
}

func (h *hub) handleRollPublic(session *wsSession, frame wsFrame) {
	var payload rollPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid roll payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		return
	}

	selection := dice.Normalize(payload.Selection)
	if len(selection) == 0 {
		_ = writeDomainError(session.peer, frame.RequestID,
			apperrors.New(apperrors.CodeSelectionEmpty, "dice selection is empty"))
		return
	}

	nickname, authorized, err := room.AuthorizeRoll(session.connectionID)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}
	if !authorized {
		return
	}

	event, rollErr := h.resolveRoll(domain.VisibilityPublic, nickname, "", selection)
	if rollErr != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", rollErr.Error())
		return
	}
	feed := wsFrame{
		Type: "table.roll.feed",
		Payload: mustJSON(rollFeedPayload{
			RoomCode: room.Code(),
			Event:    toWireEvent(event),
		}),
	}
	room.RecordRoll(event, func(recipients []string) {
		h.broadcast(recipients, feed)
	})
}

func (h *hub) handleRollHost(session *wsSession, frame wsFrame) {
	var payload hostRollPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid roll payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		return
	}

	selection := dice.Normalize(payload.Selection)
	if len(selection) == 0 {
		_ = writeDomainError(session.peer, frame.RequestID,
			apperrors.New(apperrors.CodeSelectionEmpty, "dice selection is empty"))
		return
	}

	nickname, authorized, err := room.AuthorizeHostRoll(session.connectionID,
		domain.NormalizeSecret(payload.HostSecret))
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}
	if !authorized {
		return
	}

	event, rollErr := h.resolveRoll(domain.VisibilityHost, nickname, "", selection)
	if rollErr != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", rollErr.Error())
		return
	}
	feed := wsFrame{
		Type: "table.roll.host_feed",
		Payload: mustJSON(rollFeedPayload{
			RoomCode: room.Code(),
			Event:    toWireEvent(event),
		}),
	}
	room.RecordRoll(event, func(recipients []string) {
		h.broadcast(recipients, feed)
	})
}

func (h *hub) handleSecretRequest(session *wsSession, frame wsFrame) {
	var payload secretRequestPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid secret request payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		_ = writeDomainError(session.peer, frame.RequestID,
			apperrors.New(apperrors.CodeRoomNotFound, "room not found"))
		return
	}

	request, err := room.CreateSecretRequest(session.connectionID,
		domain.NormalizeSecret(payload.HostSecret), payload.TargetConnectionID, payload.Note)
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}

	prompt := wsFrame{
		Type:      "table.secret.prompt",
		RequestID: frame.RequestID,
		Payload: mustJSON(secretPromptPayload{
			RoomCode:    room.Code(),
			RequestID:   request.RequestID,
			RequestedBy: request.RequesterNickname,
			Note:        request.Note,
			ExpiresAt:   request.CreatedAt.Add(domain.SecretRequestTTL).UTC().Format(time.RFC3339),
		}),
	}
	h.sendTo(request.TargetConnectionID, prompt)
}

func (h *hub) handleSecretResult(session *wsSession, frame wsFrame) {
	var payload secretResultPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid secret result payload")
		return
	}

	room, ok := h.registry.Get(payload.RoomCode)
	if !ok {
		return
	}

	selection := dice.Normalize(payload.Selection)
	if len(selection) == 0 {
		_ = writeDomainError(session.peer, frame.RequestID,
			apperrors.New(apperrors.CodeSelectionEmpty, "dice selection is empty"))
		return
	}

	request, authorized, err := room.AuthorizeSecretResult(session.connectionID,
		domain.NormalizeSecret(payload.RequestID))
	if err != nil {
		_ = writeDomainError(session.peer, frame.RequestID, err)
		return
	}
	if !authorized {
		return
	}

	nickname, _ := room.ParticipantNickname(session.connectionID)
	event, rollErr := h.resolveRoll(domain.VisibilitySecret, nickname, request.RequesterNickname, selection)
	if rollErr != nil {
		_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", rollErr.Error())
		return
	}
	feed := wsFrame{
		Type: "table.secret.feed",
		Payload: mustJSON(rollFeedPayload{
			RoomCode: room.Code(),
			Event:    toWireEvent(event),
		}),
	}
	room.RecordRoll(event, func(recipients []string) {
		h.broadcast(recipients, feed)
	})
	room.ConsumeSecretRequest(request.RequestID)
}

func (h *hub) handlePing(session *wsSession, frame wsFrame) {
	var payload pingPayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(session.peer, frame.RequestID, "INVALID_ARGUMENT", "invalid ping payload")
			return
		}
	}
	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.pong",
		RequestID: frame.RequestID,
		Payload: mustJSON(pongPayload{
			T0:         payload.T0,
			ServerTime: h.now().UTC().Format(time.RFC3339),
		}),
	})
}

// resolveRoll rolls a selection and wraps it into a ledger event.
func (h *hub) resolveRoll(visibility domain.Visibility, author, requestedBy string, selection dice.Selection) (domain.Event, error) {
	result, err := h.roll(selection)
	if err != nil {
		return domain.Event{}, err
	}
	return domain.Event{
		Visibility:  visibility,
		Author:      author,
		Selection:   selection,
		Label:       selection.Label(),
		Result:      result,
		RequestedBy: requestedBy,
		RolledAt:    h.now().UTC(),
	}, nil
}

// moveToRoom binds the session to a room, detaching it from any previous
// one first.
func (h *hub) moveToRoom(session *wsSession, room *domain.Room) {
	previous := session.setRoom(room)
	if previous != nil && previous != room {
		h.leaveRoom(session.connectionID, previous)
	}
}

// handleDisconnect runs when a connection's read loop ends for any
// reason.
func (h *hub) handleDisconnect(session *wsSession) {
	room := session.setRoom(nil)
	if room == nil {
		return
	}
	h.leaveRoom(session.connectionID, room)
}

func (h *hub) leaveRoom(connectionID string, room *domain.Room) {
	removed, wasHost, nickname, players := room.Depart(connectionID, h.gracePeriod, func() {
		h.closeExpiredRoom(room)
	})
	if !removed {
		return
	}

	if wasHost {
		h.broadcast(room.ConnectionIDs(), wsFrame{
			Type: "table.presence",
			Payload: mustJSON(presencePayload{
				RoomCode:         room.Code(),
				State:            presenceHostGrace,
				GraceRemainingMS: h.gracePeriod.Milliseconds(),
				Notice:           noticeHostGrace(room.Locale(), h.gracePeriod),
			}),
		})
		return
	}

	h.broadcast(room.ConnectionIDs(), wsFrame{
		Type: "table.players",
		Payload: mustJSON(playersPayload{
			RoomCode: room.Code(),
			Players:  toWirePlayers(players),
			Notice:   noticeLeft(room.Locale(), nickname),
		}),
	})
}

// closeExpiredRoom fires from the grace timer. A host rejoin that raced
// the timer wins and the room stays open.
func (h *hub) closeExpiredRoom(room *domain.Room) {
	if !room.ConfirmGraceExpired() {
		return
	}

	h.broadcast(room.CloseOut(), wsFrame{
		Type: "table.closed",
		Payload: mustJSON(closedPayload{
			RoomCode: room.Code(),
			Reason:   noticeRoomClosed(room.Locale()),
		}),
	})
	h.registry.Remove(room.Code())
}

func (h *hub) writeJoinDenied(session *wsSession, requestID, roomCode string, err error) {
	_ = session.peer.writeFrame(wsFrame{
		Type:      "table.join_denied",
		RequestID: requestID,
		Payload: mustJSON(joinDeniedPayload{
			RoomCode: roomCode,
			Code:     string(apperrors.CodeOf(err)),
			Reason:   err.Error(),
		}),
	})
}

func (h *hub) broadcastExcept(room *domain.Room, exceptConnectionID string, frame wsFrame) {
	for _, id := range room.ConnectionIDs() {
		if id == exceptConnectionID {
			continue
		}
		h.sendTo(id, frame)
	}
}

func toWirePlayers(players []domain.PlayerInfo) []playerInfo {
	out := make([]playerInfo, 0, len(players))
	for _, p := range players {
		out = append(out, playerInfo{
			ConnectionID: p.ConnectionID,
			Nickname:     p.Nickname,
			IsHost:       p.IsHost,
		})
	}
	return out
}

func toWireEvent(e domain.Event) rollEvent {
	return rollEvent{
		Visibility:  string(e.Visibility),
		Author:      e.Author,
		Label:       e.Label,
		Icons:       e.Result.Icons,
		Successes:   e.Result.SuccessesByKind,
		Failures:    e.Result.Failures,
		RequestedBy: e.RequestedBy,
		RolledAt:    e.RolledAt.Format(time.RFC3339),
	}
}

func toWireEvents(events []domain.Event) []rollEvent {
	out := make([]rollEvent, 0, len(events))
	for _, e := range events {
		out = append(out, toWireEvent(e))
	}
	return out
}
