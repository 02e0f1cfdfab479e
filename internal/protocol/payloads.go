package protocol

// ==================== Authentication Payloads ====================

// AuthenticatePayload is sent to authenticate/register a faction.
type AuthenticatePayload struct {
	Token string `json:"token,omitempty"` // Existing token for returning factions
	Name  string `json:"name"`            // Display name
	Race  string `json:"race,omitempty"`  // Human, Orc, Dark Elf or Troll
}

// AuthResultPayload is the response to authentication.
type AuthResultPayload struct {
	Success   bool   `json:"success"`
	FactionID string `json:"faction_id"`
	Token     string `json:"token"` // Save this for reconnecting
	Name      string `json:"name"`
	Race      string `json:"race"`
	HomeFace  int    `json:"home_face"` // -1 until claimed
	Error     string `json:"error,omitempty"`
}

// ==================== World Payloads ====================

// WorldStatePayload carries a full world snapshot.
type WorldStatePayload struct {
	State interface{} `json:"state"`
}

// UpdateMapPayload is broadcast after any tick that changed fortresses or packets.
type UpdateMapPayload struct {
	Tick       uint64      `json:"tick"`
	Fortresses interface{} `json:"fortresses"`
	Edges      interface{} `json:"edges"`
}

// UpdateFaceColorsPayload is broadcast after a sector changed owner.
type UpdateFaceColorsPayload struct {
	Tick   uint64   `json:"tick"`
	Colors []uint32 `json:"colors"`
}

// WorldEventPayload relays a capture or sanctuary spawn.
type WorldEventPayload struct {
	Kind     string  `json:"kind"`
	Tick     uint64  `json:"tick"`
	Fortress int     `json:"fortress,omitempty"`
	Target   string  `json:"target,omitempty"`
	Face     int     `json:"face,omitempty"`
	Owner    string  `json:"owner,omitempty"`
	Previous string  `json:"previous,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// WorldHistoryPayload contains recent history for a world.
type WorldHistoryPayload struct {
	Events []HistoryEvent `json:"events"`
}

// HistoryEvent is a single entry in the world history log.
type HistoryEvent struct {
	ID          int64  `json:"id"`
	Tick        uint64 `json:"tick"`
	FactionID   string `json:"faction_id,omitempty"`
	FactionName string `json:"faction_name,omitempty"`
	EventType   string `json:"event_type"`
	Message     string `json:"message"`
}

// ==================== Action Payloads ====================

// ClaimHomePayload asks for a home sector. It has no fields.
type ClaimHomePayload struct{}

// HomeAssignedPayload reports the faction's home sector.
type HomeAssignedPayload struct {
	Face       int   `json:"face"`
	Fortresses []int `json:"fortresses"`
}

// SubmitMovePayload toggles a path from source to target.
type SubmitMovePayload struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// SpecializePayload converts a fortress to a new type.
type SpecializePayload struct {
	Fortress int    `json:"fortress"`
	Type     string `json:"type"`
}

// ActionResultPayload is the result of a faction action.
type ActionResultPayload struct {
	ActionID string `json:"action_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// WorldRestartedPayload is broadcast after the world was regenerated.
type WorldRestartedPayload struct {
	WorldID string `json:"world_id"`
}

// ==================== System Payloads ====================

// WelcomePayload is sent on connection.
type WelcomePayload struct {
	ServerVersion string `json:"server_version"`
}
