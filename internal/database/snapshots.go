package database

import (
	"bytes"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

// Snapshot is a stored world snapshot with its decompressed JSON body.
type Snapshot struct {
	ID        int64
	WorldID   string
	Tick      uint64
	Data      []byte
	Hash      string
	PrevHash  string
	CreatedAt time.Time
}

// ErrSnapshotNotFound is returned when no snapshot has been stored.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotTampered is returned when a stored hash does not match its body or chain.
var ErrSnapshotTampered = errors.New("snapshot hash chain broken")

// SaveSnapshot compresses state and appends it to the world's hash chain.
// It returns the new chain head.
func (db *DB) SaveSnapshot(worldID string, tick uint64, state []byte) (string, error) {
	var prev string
	err := db.conn.QueryRow(`
		SELECT hash FROM world_snapshots WHERE world_id = ? ORDER BY id DESC LIMIT 1
	`, worldID).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	blob, err := compressLZ4(state)
	if err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	hash := chainHash(prev, state)

	_, err = db.conn.Exec(`
		INSERT INTO world_snapshots (world_id, tick, blob, hash, prev_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, worldID, int64(tick), blob, hash, prev, time.Now())
	if err != nil {
		return "", err
	}
	return hash, nil
}

// LatestSnapshot returns the most recently stored snapshot of any world,
// verified against its own hash.
func (db *DB) LatestSnapshot() (*Snapshot, error) {
	row := db.conn.QueryRow(`
		SELECT id, world_id, tick, blob, hash, prev_hash, created_at
		FROM world_snapshots ORDER BY id DESC LIMIT 1
	`)
	var s Snapshot
	var tick int64
	var blob []byte
	err := row.Scan(&s.ID, &s.WorldID, &tick, &blob, &s.Hash, &s.PrevHash, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Tick = uint64(tick)

	s.Data, err = decompressLZ4(blob)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %d: %w", s.ID, err)
	}
	if chainHash(s.PrevHash, s.Data) != s.Hash {
		return nil, fmt.Errorf("snapshot %d: %w", s.ID, ErrSnapshotTampered)
	}
	return &s, nil
}

// VerifySnapshotChain walks a world's stored snapshots in order and checks that
// every body matches its hash and every link points at its predecessor.
func (db *DB) VerifySnapshotChain(worldID string) error {
	rows, err := db.conn.Query(`
		SELECT id, blob, hash, prev_hash FROM world_snapshots
		WHERE world_id = ? ORDER BY id ASC
	`, worldID)
	if err != nil {
		return err
	}
	defer rows.Close()

	first := true
	var last string
	for rows.Next() {
		var id int64
		var blob []byte
		var hash, prev string
		if err := rows.Scan(&id, &blob, &hash, &prev); err != nil {
			return err
		}
		data, err := decompressLZ4(blob)
		if err != nil {
			return fmt.Errorf("decompress snapshot %d: %w", id, err)
		}
		if chainHash(prev, data) != hash {
			return fmt.Errorf("snapshot %d: %w", id, ErrSnapshotTampered)
		}
		// Pruning drops the oldest rows, so the first survivor may link to a deleted hash.
		if !first && prev != last {
			return fmt.Errorf("snapshot %d: %w", id, ErrSnapshotTampered)
		}
		first = false
		last = hash
	}
	return rows.Err()
}

// PruneSnapshots keeps only the newest keep snapshots of a world.
func (db *DB) PruneSnapshots(worldID string, keep int) error {
	_, err := db.conn.Exec(`
		DELETE FROM world_snapshots
		WHERE world_id = ? AND id NOT IN (
			SELECT id FROM world_snapshots WHERE world_id = ? ORDER BY id DESC LIMIT ?
		)
	`, worldID, worldID, keep)
	return err
}

func chainHash(prev string, data []byte) string {
	h := blake3.New(32, nil)
	h.Write([]byte(prev))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func compressLZ4(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(src []byte) ([]byte, error) {
	zr := lz4.NewReader(bytes.NewReader(src))
	return io.ReadAll(zr)
}
