package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Faction represents a human faction with a reconnect token.
type Faction struct {
	ID         string
	Token      string
	Name       string
	Race       string
	HomeFace   int
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// ErrFactionNotFound is returned when a faction is not found.
var ErrFactionNotFound = errors.New("faction not found")

// CreateFaction creates a new faction with a generated token.
func (db *DB) CreateFaction(name, race string) (*Faction, error) {
	id := uuid.New().String()
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = db.conn.Exec(`
		INSERT INTO factions (id, token, name, race, home_face, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, -1, ?, ?)
	`, id, token, name, race, now, now)
	if err != nil {
		return nil, err
	}

	return &Faction{
		ID:         id,
		Token:      token,
		Name:       name,
		Race:       race,
		HomeFace:   -1,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// GetFactionByToken retrieves a faction by its token.
func (db *DB) GetFactionByToken(token string) (*Faction, error) {
	return db.scanFaction(db.conn.QueryRow(`
		SELECT id, token, name, race, home_face, created_at, last_seen_at
		FROM factions WHERE token = ?
	`, token))
}

// GetFactionByID retrieves a faction by its ID.
func (db *DB) GetFactionByID(id string) (*Faction, error) {
	return db.scanFaction(db.conn.QueryRow(`
		SELECT id, token, name, race, home_face, created_at, last_seen_at
		FROM factions WHERE id = ?
	`, id))
}

func (db *DB) scanFaction(row *sql.Row) (*Faction, error) {
	f := &Faction{}
	err := row.Scan(&f.ID, &f.Token, &f.Name, &f.Race, &f.HomeFace, &f.CreatedAt, &f.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFactions returns every stored faction, oldest first.
func (db *DB) ListFactions() ([]*Faction, error) {
	rows, err := db.conn.Query(`
		SELECT id, token, name, race, home_face, created_at, last_seen_at
		FROM factions ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var factions []*Faction
	for rows.Next() {
		f := &Faction{}
		if err := rows.Scan(&f.ID, &f.Token, &f.Name, &f.Race, &f.HomeFace, &f.CreatedAt, &f.LastSeenAt); err != nil {
			return nil, err
		}
		factions = append(factions, f)
	}
	return factions, rows.Err()
}

// UpdateFactionName updates a faction's display name.
func (db *DB) UpdateFactionName(id, name string) error {
	res, err := db.conn.Exec(`UPDATE factions SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// UpdateFactionHome records the home sector a faction was seated on. -1 clears it.
func (db *DB) UpdateFactionHome(id string, face int) error {
	res, err := db.conn.Exec(`UPDATE factions SET home_face = ? WHERE id = ?`, face, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// ClearHomes resets every faction's home sector, used after a world restart.
func (db *DB) ClearHomes() error {
	_, err := db.conn.Exec(`UPDATE factions SET home_face = -1`)
	return err
}

// UpdateFactionLastSeen updates the last seen timestamp for a faction.
func (db *DB) UpdateFactionLastSeen(id string) error {
	_, err := db.conn.Exec(`UPDATE factions SET last_seen_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFactionNotFound
	}
	return nil
}

// generateToken creates a secure random token.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
