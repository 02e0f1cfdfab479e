package server

import (
	"errors"
	"fmt"
	"log"

	"valhalla/internal/database"
	"valhalla/internal/game"
	"valhalla/internal/protocol"
)

// historyOnConnect is how many history entries a faction receives after authenticating.
const historyOnConnect = 50

// errNotAuthenticated is returned for actions sent before authenticate.
var errNotAuthenticated = errors.New("not authenticated")

// Handlers processes incoming messages.
type Handlers struct {
	hub *Hub
}

// NewHandlers creates a new handler set.
func NewHandlers(hub *Hub) *Handlers {
	return &Handlers{hub: hub}
}

// Handle routes a message to the appropriate handler.
func (h *Handlers) Handle(client *Client, msg *protocol.Message) {
	var err error

	switch msg.Type {
	case protocol.TypeAuthenticate:
		err = h.handleAuthenticate(client, msg)
	case protocol.TypeRequestState:
		err = h.handleRequestState(client, msg)
	case protocol.TypeClaimHome:
		err = h.handleClaimHome(client, msg)
	case protocol.TypeSubmitMove:
		err = h.handleSubmitMove(client, msg)
	case protocol.TypeSpecialize:
		err = h.handleSpecialize(client, msg)
	case protocol.TypeRestartGame:
		err = h.handleRestartGame(client, msg)
	case protocol.TypePing:
		reply, _ := protocol.NewMessage(protocol.TypePong, struct{}{})
		reply.ID = msg.ID
		client.Send(reply)
	default:
		err = errors.New("unknown message type")
	}

	if err != nil {
		h.sendError(client, msg.ID, err)
	}
}

// handleAuthenticate handles faction authentication/registration.
func (h *Handlers) handleAuthenticate(client *Client, msg *protocol.Message) error {
	var payload protocol.AuthenticatePayload
	if err := msg.ParsePayload(&payload); err != nil {
		return err
	}

	race := game.RaceHuman
	if payload.Race != "" {
		r, err := game.ParseRace(payload.Race)
		if err != nil || r == game.RaceNeutral {
			return errors.New("unknown race: " + payload.Race)
		}
		race = r
	}

	db := h.hub.server.db
	var faction *database.Faction
	var err error

	// Try to find existing faction by token
	if payload.Token != "" {
		faction, err = db.GetFactionByToken(payload.Token)
		if err != nil && !errors.Is(err, database.ErrFactionNotFound) {
			return err
		}
	}

	// Create new faction if not found
	if faction == nil {
		name := payload.Name
		if name == "" {
			name = "Warlord"
		}
		faction, err = db.CreateFaction(name, race.String())
		if err != nil {
			return err
		}
		log.Printf("Created new faction: %s (%s)", faction.Name, faction.ID)
	} else {
		// Update name if provided
		if payload.Name != "" && payload.Name != faction.Name {
			db.UpdateFactionName(faction.ID, payload.Name)
			faction.Name = payload.Name
		}
		db.UpdateFactionLastSeen(faction.ID)
		log.Printf("Faction reconnected: %s (%s)", faction.Name, faction.ID)
	}

	// A returning faction keeps the race it registered with.
	storedRace, err := game.ParseRace(faction.Race)
	if err != nil {
		storedRace = race
	}
	member, err := h.hub.server.engine.Join(faction.ID, faction.Name, storedRace)
	if err != nil {
		return err
	}

	h.hub.SetClientFaction(client, faction.ID, faction.Name)

	response := protocol.AuthResultPayload{
		Success:   true,
		FactionID: faction.ID,
		Token:     faction.Token,
		Name:      faction.Name,
		Race:      member.Race.String(),
		HomeFace:  member.HomeFace,
	}
	respMsg, _ := protocol.NewMessage(protocol.TypeAuthResult, response)
	respMsg.ID = msg.ID
	client.Send(respMsg)

	h.sendHistory(client)
	return nil
}

// sendHistory sends the recent history of the current world.
func (h *Handlers) sendHistory(client *Client) {
	worldID, _ := h.hub.server.engine.Clock()
	events, err := h.hub.server.db.GetWorldHistory(worldID, historyOnConnect)
	if err != nil {
		log.Printf("Failed to load history: %v", err)
		return
	}
	payload := protocol.WorldHistoryPayload{Events: make([]protocol.HistoryEvent, len(events))}
	for i, e := range events {
		payload.Events[i] = protocol.HistoryEvent{
			ID:          e.ID,
			Tick:        e.Tick,
			FactionID:   e.FactionID,
			FactionName: e.FactionName,
			EventType:   e.EventType,
			Message:     e.Message,
		}
	}
	msg, _ := protocol.NewMessage(protocol.TypeWorldHistory, payload)
	client.Send(msg)
}

// handleRequestState sends the full world, generating it on first request.
func (h *Handlers) handleRequestState(client *Client, msg *protocol.Message) error {
	snap := h.hub.server.engine.Snapshot()
	respMsg, err := protocol.NewMessage(protocol.TypeWorldState, protocol.WorldStatePayload{State: snap})
	if err != nil {
		return err
	}
	respMsg.ID = msg.ID
	client.Send(respMsg)
	return nil
}

// handleClaimHome seats the faction on a free sector.
func (h *Handlers) handleClaimHome(client *Client, msg *protocol.Message) error {
	factionID, name := client.Faction()
	if factionID == "" {
		return errNotAuthenticated
	}

	engine := h.hub.server.engine
	face, err := engine.AssignHomeSector(factionID)
	if err != nil {
		return err
	}
	if err := h.hub.server.db.UpdateFactionHome(factionID, face); err != nil {
		log.Printf("Failed to store home sector: %v", err)
	}

	verts, _ := engine.Sector(face)
	log.Printf("Faction %s claimed sector %d", name, face)

	worldID, tick := engine.Clock()
	h.hub.server.recordEvents(worldID, []game.Event{{
		Kind:  game.EventHomeAssigned,
		Tick:  tick,
		Face:  face,
		Owner: factionID,
	}})

	respMsg, _ := protocol.NewMessage(protocol.TypeHomeAssigned, protocol.HomeAssignedPayload{
		Face:       face,
		Fortresses: verts[:],
	})
	respMsg.ID = msg.ID
	client.Send(respMsg)
	return nil
}

// handleSubmitMove toggles a path. Rejections leave the world untouched.
func (h *Handlers) handleSubmitMove(client *Client, msg *protocol.Message) error {
	factionID, _ := client.Faction()
	if factionID == "" {
		return errNotAuthenticated
	}

	var payload protocol.SubmitMovePayload
	if err := msg.ParsePayload(&payload); err != nil {
		return err
	}

	err := h.hub.server.engine.TogglePath(payload.Source, payload.Target, factionID)
	h.sendActionResult(client, msg.ID, err)
	return nil
}

// handleSpecialize converts a fortress type.
func (h *Handlers) handleSpecialize(client *Client, msg *protocol.Message) error {
	factionID, _ := client.Faction()
	if factionID == "" {
		return errNotAuthenticated
	}

	var payload protocol.SpecializePayload
	if err := msg.ParsePayload(&payload); err != nil {
		return err
	}

	t, err := game.ParseFortressType(payload.Type)
	if err != nil {
		err = fmt.Errorf("%w: %v", game.ErrIllegalType, err)
	} else {
		err = h.hub.server.engine.Specialize(payload.Fortress, t, factionID)
	}
	h.sendActionResult(client, msg.ID, err)
	return nil
}

// handleRestartGame regenerates the world for everyone.
func (h *Handlers) handleRestartGame(client *Client, msg *protocol.Message) error {
	factionID, name := client.Faction()
	if factionID == "" {
		return errNotAuthenticated
	}

	server := h.hub.server
	ev, err := server.engine.Regenerate()
	if err != nil {
		return err
	}
	if err := server.db.ClearHomes(); err != nil {
		log.Printf("Failed to clear home sectors: %v", err)
	}

	snap := server.engine.Snapshot()
	ev.Owner = factionID
	server.recordEvents(snap.ID, []game.Event{ev})
	if err := server.saveSnapshot(snap); err != nil {
		log.Printf("Failed to save snapshot after restart: %v", err)
	}

	log.Printf("World restarted by %s", name)

	h.sendActionResult(client, msg.ID, nil)
	h.hub.BroadcastAll(protocol.TypeWorldRestarted, protocol.WorldRestartedPayload{WorldID: snap.ID})
	h.hub.BroadcastAll(protocol.TypeWorldState, protocol.WorldStatePayload{State: snap})
	return nil
}

// sendActionResult reports whether a command was applied.
func (h *Handlers) sendActionResult(client *Client, msgID string, err error) {
	payload := protocol.ActionResultPayload{
		ActionID: msgID,
		Success:  err == nil,
	}
	if err != nil {
		payload.Error = string(errorCode(err))
	}
	msg, _ := protocol.NewMessage(protocol.TypeActionResult, payload)
	msg.ID = msgID
	client.Send(msg)
}

// sendError sends an error message to a client.
func (h *Handlers) sendError(client *Client, msgID string, err error) {
	payload := protocol.ErrorPayload{
		Code:    errorCode(err),
		Message: err.Error(),
	}
	msg, _ := protocol.NewMessage(protocol.TypeError, payload)
	msg.ID = msgID
	client.Send(msg)
}

// errorCode maps engine errors onto wire codes.
func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, errNotAuthenticated):
		return protocol.ErrCodeNotAuthenticated
	case errors.Is(err, game.ErrNotOwner):
		return protocol.ErrCodeNotOwner
	case errors.Is(err, game.ErrNotAdjacent), errors.Is(err, game.ErrSelfPath):
		return protocol.ErrCodeNotAdjacent
	case errors.Is(err, game.ErrPathCapacity):
		return protocol.ErrCodePathCapacity
	case errors.Is(err, game.ErrIllegalType):
		return protocol.ErrCodeIllegalType
	case errors.Is(err, game.ErrHomeUnavailable):
		return protocol.ErrCodeNoHome
	case errors.Is(err, game.ErrEngineBusy):
		return protocol.ErrCodeBusy
	case errors.Is(err, game.ErrUnknownFortress), errors.Is(err, game.ErrUnknownFaction):
		return protocol.ErrCodeInvalidMessage
	}
	return protocol.ErrCodeInternalError
}
