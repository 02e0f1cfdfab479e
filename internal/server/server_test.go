package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"valhalla/internal/game"
	"valhalla/internal/protocol"
	"valhalla/internal/tuning"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig(t *testing.T, dir string) Config {
	t.Helper()
	cfg := tuning.Default()
	cfg.World.Subdivisions = 2
	return Config{
		Addr:      ":0",
		DBPath:    filepath.Join(dir, "valhalla.db"),
		EventsDir: filepath.Join(dir, "events"),
		Tuning:    cfg,
		Seed:      42,
	}
}

// startTestServer runs the hub (not the tick loop) behind an httptest server.
func startTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.hub.Run(ctx)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-s.hub.done
		s.events.Close()
		s.db.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload interface{}) string {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	return msg.ID
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want protocol.MessageType) *protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return &msg
		}
	}
}

func authenticate(t *testing.T, conn *websocket.Conn, p protocol.AuthenticatePayload) protocol.AuthResultPayload {
	t.Helper()
	send(t, conn, protocol.TypeAuthenticate, p)
	var res protocol.AuthResultPayload
	if err := readUntil(t, conn, protocol.TypeAuthResult).ParsePayload(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("authentication failed: %s", res.Error)
	}
	return res
}

func TestHTTPEndpoints(t *testing.T) {
	_, ts := startTestServer(t, testConfig(t, t.TempDir()))

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("unexpected health response %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/api/gamestate")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var snap game.WorldSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode game state: %v", err)
	}
	if len(snap.Fortresses) != 162 || len(snap.Faces) != 320 {
		t.Errorf("expected a subdivision-2 world, got %d fortresses and %d faces", len(snap.Fortresses), len(snap.Faces))
	}

	post, err := http.Post(ts.URL+"/api/gamestate", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", post.StatusCode)
	}
}

func TestFactionSession(t *testing.T) {
	s, ts := startTestServer(t, testConfig(t, t.TempDir()))
	conn := dial(t, ts)
	readUntil(t, conn, protocol.TypeWelcome)

	t.Run("actions before authenticate", func(t *testing.T) {
		send(t, conn, protocol.TypeClaimHome, protocol.ClaimHomePayload{})
		var p protocol.ErrorPayload
		readUntil(t, conn, protocol.TypeError).ParsePayload(&p)
		if p.Code != protocol.ErrCodeNotAuthenticated {
			t.Errorf("expected not_authenticated, got %s", p.Code)
		}
	})

	auth := authenticate(t, conn, protocol.AuthenticatePayload{Name: "Ragna", Race: "Dark Elf"})
	if auth.Race != "Dark Elf" || auth.HomeFace != -1 || len(auth.Token) != 64 {
		t.Errorf("unexpected auth result %+v", auth)
	}
	readUntil(t, conn, protocol.TypeWorldHistory)

	send(t, conn, protocol.TypeClaimHome, protocol.ClaimHomePayload{})
	var home protocol.HomeAssignedPayload
	if err := readUntil(t, conn, protocol.TypeHomeAssigned).ParsePayload(&home); err != nil {
		t.Fatal(err)
	}
	if len(home.Fortresses) != 3 {
		t.Fatalf("expected 3 home fortresses, got %v", home.Fortresses)
	}

	send(t, conn, protocol.TypeRequestState, struct{}{})
	var state struct {
		State game.WorldSnapshot `json:"state"`
	}
	if err := readUntil(t, conn, protocol.TypeWorldState).ParsePayload(&state); err != nil {
		t.Fatal(err)
	}
	source, target := -1, -1
	for _, v := range home.Fortresses {
		if f := state.State.Fortresses[v]; f.Owner != auth.FactionID {
			t.Errorf("home fortress %d not owned by the faction", v)
		}
		if adj := state.State.Adjacency[v]; source < 0 && len(adj) > 0 {
			source, target = v, adj[0]
		}
	}
	if source < 0 {
		t.Fatal("home sector has no roads")
	}

	t.Run("submit move", func(t *testing.T) {
		id := send(t, conn, protocol.TypeSubmitMove, protocol.SubmitMovePayload{Source: source, Target: target})
		var res protocol.ActionResultPayload
		readUntil(t, conn, protocol.TypeActionResult).ParsePayload(&res)
		if !res.Success || res.ActionID != id {
			t.Errorf("expected accepted move, got %+v", res)
		}
	})

	t.Run("rejected move", func(t *testing.T) {
		send(t, conn, protocol.TypeSubmitMove, protocol.SubmitMovePayload{Source: source, Target: source})
		var res protocol.ActionResultPayload
		readUntil(t, conn, protocol.TypeActionResult).ParsePayload(&res)
		if res.Success || res.Error != string(protocol.ErrCodeNotAdjacent) {
			t.Errorf("expected not_adjacent, got %+v", res)
		}
	})

	t.Run("unknown fortress type", func(t *testing.T) {
		send(t, conn, protocol.TypeSpecialize, protocol.SpecializePayload{Fortress: source, Type: "Castle"})
		var res protocol.ActionResultPayload
		readUntil(t, conn, protocol.TypeActionResult).ParsePayload(&res)
		if res.Success || res.Error != string(protocol.ErrCodeIllegalType) {
			t.Errorf("expected illegal_type, got %+v", res)
		}
	})

	t.Run("tick broadcast", func(t *testing.T) {
		s.publish(s.engine.Tick())
		var upd protocol.UpdateMapPayload
		if err := readUntil(t, conn, protocol.TypeUpdateMap).ParsePayload(&upd); err != nil {
			t.Fatal(err)
		}
		if upd.Tick != 1 {
			t.Errorf("expected tick 1, got %d", upd.Tick)
		}
	})

	t.Run("history recorded", func(t *testing.T) {
		worldID, _ := s.engine.Clock()
		events, err := s.db.GetWorldHistory(worldID, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(events) == 0 || events[0].EventType != string(game.EventHomeAssigned) || events[0].FactionName != "Ragna" {
			t.Errorf("expected the home claim in history, got %+v", events)
		}
	})

	t.Run("reconnect keeps faction", func(t *testing.T) {
		other := dial(t, ts)
		again := authenticate(t, other, protocol.AuthenticatePayload{Token: auth.Token, Race: "Orc"})
		if again.FactionID != auth.FactionID || again.Race != "Dark Elf" {
			t.Errorf("expected the stored faction, got %+v", again)
		}
		if again.HomeFace != home.Face {
			t.Errorf("expected home %d, got %d", home.Face, again.HomeFace)
		}
	})
}

func TestRestartGame(t *testing.T) {
	s, ts := startTestServer(t, testConfig(t, t.TempDir()))
	conn := dial(t, ts)
	authenticate(t, conn, protocol.AuthenticatePayload{Name: "Urk", Race: "Orc"})
	before, _ := s.engine.Clock()

	send(t, conn, protocol.TypeRestartGame, struct{}{})
	var restarted protocol.WorldRestartedPayload
	if err := readUntil(t, conn, protocol.TypeWorldRestarted).ParsePayload(&restarted); err != nil {
		t.Fatal(err)
	}
	if restarted.WorldID == before || restarted.WorldID == "" {
		t.Errorf("expected a new world id, got %q", restarted.WorldID)
	}
	if err := s.db.VerifySnapshotChain(restarted.WorldID); err != nil {
		t.Errorf("restart should store a snapshot: %v", err)
	}
}

func TestRateLimitedClient(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.Tuning.RateLimits.CommandsPerSecond = 0.001
	cfg.Tuning.RateLimits.CommandBurst = 1
	_, ts := startTestServer(t, cfg)
	conn := dial(t, ts)

	send(t, conn, protocol.TypePing, struct{}{})
	readUntil(t, conn, protocol.TypePong)

	send(t, conn, protocol.TypePing, struct{}{})
	var p protocol.ErrorPayload
	readUntil(t, conn, protocol.TypeError).ParsePayload(&p)
	if p.Code != protocol.ErrCodeRateLimited {
		t.Errorf("expected rate_limited, got %s", p.Code)
	}
}

func TestRestoreLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		s.engine.Tick()
	}
	if err := s.saveSnapshot(s.engine.Snapshot()); err != nil {
		t.Fatal(err)
	}
	worldID, tick := s.engine.Clock()
	s.events.Close()
	s.db.Close()

	cfg.Seed = 7
	restored, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer restored.db.Close()
	gotID, gotTick := restored.engine.Clock()
	if gotID != worldID || gotTick != tick {
		t.Errorf("expected world %s at tick %d, got %s at %d", worldID, tick, gotID, gotTick)
	}
}

func TestPipelinedCommandsApplyInOrder(t *testing.T) {
	_, ts := startTestServer(t, testConfig(t, t.TempDir()))

	for i := 0; i < 5; i++ {
		conn := dial(t, ts)
		send(t, conn, protocol.TypeAuthenticate, protocol.AuthenticatePayload{Name: "Hasty", Race: "Orc"})
		claimID := send(t, conn, protocol.TypeClaimHome, protocol.ClaimHomePayload{})

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		authed := false
		for {
			var msg protocol.Message
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("round %d: %v", i, err)
			}
			if msg.Type == protocol.TypeAuthResult {
				authed = true
			}
			if msg.Type == protocol.TypeError && msg.ID == claimID {
				var p protocol.ErrorPayload
				msg.ParsePayload(&p)
				t.Fatalf("round %d: claim_home rejected: %s", i, p.Code)
			}
			if msg.Type == protocol.TypeHomeAssigned {
				if !authed {
					t.Fatalf("round %d: home assigned before auth result", i)
				}
				break
			}
		}
		conn.Close()
	}
}
