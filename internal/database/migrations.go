package database

type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "initial_schema",
		sql: `
			-- Factions table: human factions identified by a reconnect token
			CREATE TABLE factions (
				id TEXT PRIMARY KEY,
				token TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL,
				race TEXT NOT NULL,
				home_face INTEGER NOT NULL DEFAULT -1,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_factions_token ON factions(token);

			-- World history: captures, spawns and restarts per world
			CREATE TABLE world_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				world_id TEXT NOT NULL,
				tick INTEGER NOT NULL,
				faction_id TEXT,
				faction_name TEXT,
				event_type TEXT NOT NULL,
				message TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_world_history_world ON world_history(world_id, id);
		`,
	},
	{
		id:   2,
		name: "world_snapshots",
		sql: `
			-- Snapshots: lz4 compressed JSON, each hash chained to the previous one
			CREATE TABLE world_snapshots (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				world_id TEXT NOT NULL,
				tick INTEGER NOT NULL,
				blob BLOB NOT NULL,
				hash TEXT NOT NULL,
				prev_hash TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_world_snapshots_world ON world_snapshots(world_id, id);
		`,
	},
}
