package database

import "time"

// HistoryEvent represents a single world event in the history log.
type HistoryEvent struct {
	ID          int64
	WorldID     string
	Tick        uint64
	FactionID   string
	FactionName string
	EventType   string
	Message     string
	CreatedAt   time.Time
}

// Event types for world history
const (
	EventCapture       = "capture"
	EventSanctuary     = "sanctuary_spawn"
	EventHomeAssigned  = "home_assigned"
	EventWorldRestart  = "regenerate"
	EventFactionJoined = "faction_joined"
)

// AddHistoryEvent adds a new event to the world history.
func (db *DB) AddHistoryEvent(worldID string, tick uint64, factionID, factionName, eventType, message string) error {
	_, err := db.conn.Exec(`
		INSERT INTO world_history (world_id, tick, faction_id, faction_name, event_type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, worldID, int64(tick), factionID, factionName, eventType, message, time.Now())
	return err
}

// GetWorldHistory retrieves the most recent limit events for a world, oldest first.
func (db *DB) GetWorldHistory(worldID string, limit int) ([]*HistoryEvent, error) {
	events, err := db.queryHistory(`
		SELECT id, world_id, tick, faction_id, faction_name, event_type, message, created_at
		FROM world_history
		WHERE world_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, worldID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// GetWorldHistorySince retrieves history events after a given ID (for incremental updates).
func (db *DB) GetWorldHistorySince(worldID string, afterID int64) ([]*HistoryEvent, error) {
	return db.queryHistory(`
		SELECT id, world_id, tick, faction_id, faction_name, event_type, message, created_at
		FROM world_history
		WHERE world_id = ? AND id > ?
		ORDER BY id ASC
	`, worldID, afterID)
}

func (db *DB) queryHistory(query string, args ...interface{}) ([]*HistoryEvent, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*HistoryEvent
	for rows.Next() {
		e := &HistoryEvent{}
		var tick int64
		var factionID, factionName *string
		if err := rows.Scan(&e.ID, &e.WorldID, &tick, &factionID, &factionName, &e.EventType, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		if factionID != nil {
			e.FactionID = *factionID
		}
		if factionName != nil {
			e.FactionName = *factionName
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ClearWorldHistory deletes all history for a world.
func (db *DB) ClearWorldHistory(worldID string) error {
	_, err := db.conn.Exec(`DELETE FROM world_history WHERE world_id = ?`, worldID)
	return err
}
