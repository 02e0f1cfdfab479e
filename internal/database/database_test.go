package database

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "valhalla.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valhalla.db")
	db, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("reopen should skip applied migrations: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d applied migrations, got %d", len(migrations), count)
	}
}

func TestMemoryDatabase(t *testing.T) {
	db, err := New(MemoryPath)
	if err != nil {
		t.Fatalf("open memory database: %v", err)
	}
	defer db.Close()

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != migrations[len(migrations)-1].id {
		t.Errorf("expected schema version %d, got %d", migrations[len(migrations)-1].id, version)
	}

	f, err := db.CreateFaction("Eir", "Human")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetFactionByToken(f.Token); err != nil {
		t.Errorf("faction should persist for the life of the connection: %v", err)
	}
}

func TestFactions(t *testing.T) {
	db := openTestDB(t)

	f, err := db.CreateFaction("Ragna", "Dark Elf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(f.Token) != 64 || f.HomeFace != -1 {
		t.Errorf("unexpected new faction %+v", f)
	}

	t.Run("by token", func(t *testing.T) {
		got, err := db.GetFactionByToken(f.Token)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != f.ID || got.Race != "Dark Elf" {
			t.Errorf("expected %s, got %+v", f.ID, got)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if _, err := db.GetFactionByToken("nope"); !errors.Is(err, ErrFactionNotFound) {
			t.Errorf("expected ErrFactionNotFound, got %v", err)
		}
	})

	t.Run("home", func(t *testing.T) {
		if err := db.UpdateFactionHome(f.ID, 17); err != nil {
			t.Fatal(err)
		}
		got, err := db.GetFactionByID(f.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.HomeFace != 17 {
			t.Errorf("expected home 17, got %d", got.HomeFace)
		}
		if err := db.ClearHomes(); err != nil {
			t.Fatal(err)
		}
		got, _ = db.GetFactionByID(f.ID)
		if got.HomeFace != -1 {
			t.Errorf("expected cleared home, got %d", got.HomeFace)
		}
	})

	t.Run("update unknown", func(t *testing.T) {
		if err := db.UpdateFactionHome("missing", 1); !errors.Is(err, ErrFactionNotFound) {
			t.Errorf("expected ErrFactionNotFound, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		if _, err := db.CreateFaction("Urk", "Orc"); err != nil {
			t.Fatal(err)
		}
		all, err := db.ListFactions()
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 factions, got %d", len(all))
		}
	})
}

func TestWorldHistory(t *testing.T) {
	db := openTestDB(t)

	for i := 1; i <= 5; i++ {
		if err := db.AddHistoryEvent("w1", uint64(i), "f1", "Ragna", EventCapture, "captured"); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.AddHistoryEvent("w2", 1, "", "", EventWorldRestart, "restart"); err != nil {
		t.Fatal(err)
	}

	recent, err := db.GetWorldHistory("w1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	if recent[0].Tick != 3 || recent[2].Tick != 5 {
		t.Errorf("expected ticks 3..5 oldest first, got %d..%d", recent[0].Tick, recent[2].Tick)
	}

	since, err := db.GetWorldHistorySince("w1", recent[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 1 || since[0].Tick != 5 {
		t.Errorf("expected only tick 5, got %d events", len(since))
	}

	other, err := db.GetWorldHistory("w2", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 || other[0].FactionID != "" {
		t.Errorf("expected one anonymous event, got %+v", other)
	}

	if err := db.ClearWorldHistory("w1"); err != nil {
		t.Fatal(err)
	}
	if left, _ := db.GetWorldHistory("w1", 10); len(left) != 0 {
		t.Errorf("expected history cleared, got %d", len(left))
	}
}

func TestSnapshotChain(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.LatestSnapshot(); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}

	var heads []string
	for tick := uint64(60); tick <= 240; tick += 60 {
		body := []byte(`{"tick":` + string(rune('0'+tick/60)) + `,"fortresses":[]}`)
		h, err := db.SaveSnapshot("w1", tick, body)
		if err != nil {
			t.Fatal(err)
		}
		heads = append(heads, h)
	}
	if heads[0] == heads[1] {
		t.Error("chained hashes must differ")
	}

	latest, err := db.LatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if latest.Tick != 240 || latest.Hash != heads[3] || latest.PrevHash != heads[2] {
		t.Errorf("unexpected latest snapshot tick %d hash %s", latest.Tick, latest.Hash)
	}
	if string(latest.Data) != `{"tick":4,"fortresses":[]}` {
		t.Errorf("unexpected body %s", latest.Data)
	}

	if err := db.VerifySnapshotChain("w1"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	t.Run("prune keeps chain valid", func(t *testing.T) {
		if err := db.PruneSnapshots("w1", 2); err != nil {
			t.Fatal(err)
		}
		var count int
		db.conn.QueryRow("SELECT COUNT(*) FROM world_snapshots").Scan(&count)
		if count != 2 {
			t.Errorf("expected 2 snapshots left, got %d", count)
		}
		if err := db.VerifySnapshotChain("w1"); err != nil {
			t.Errorf("verify after prune: %v", err)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		blob, err := compressLZ4([]byte(`{"tick":4,"fortresses":[{"owner":"cheater"}]}`))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := db.conn.Exec("UPDATE world_snapshots SET blob = ? WHERE hash = ?", blob, heads[3]); err != nil {
			t.Fatal(err)
		}
		if _, err := db.LatestSnapshot(); !errors.Is(err, ErrSnapshotTampered) {
			t.Errorf("expected ErrSnapshotTampered, got %v", err)
		}
		if err := db.VerifySnapshotChain("w1"); !errors.Is(err, ErrSnapshotTampered) {
			t.Errorf("expected chain verification to fail, got %v", err)
		}
	})
}
