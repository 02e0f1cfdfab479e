// Package server implements the Valhalla world server.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"valhalla/internal/database"
	"valhalla/internal/eventlog"
	"valhalla/internal/game"
	"valhalla/internal/protocol"
	"valhalla/internal/tuning"

	"github.com/gorilla/websocket"
)

// keepSnapshots is how many snapshots of the current world stay in the database.
const keepSnapshots = 24

// Server is the main world server.
type Server struct {
	db       *database.DB
	hub      *Hub
	engine   *game.Engine
	events   *eventlog.Logger
	tuning   tuning.Tuning
	upgrader websocket.Upgrader
	addr     string
	server   *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds server configuration.
type Config struct {
	Addr      string
	DBPath    string
	EventsDir string
	Tuning    tuning.Tuning
	Seed      int64 // 0 seeds from the clock
}

// New creates a new server and restores the latest stored world, if any.
func New(cfg Config) (*Server, error) {
	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if version, err := db.SchemaVersion(); err == nil {
		log.Printf("Database %s at schema version %d", cfg.DBPath, version)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Server{
		db:     db,
		engine: game.NewEngine(cfg.Tuning, rand.New(rand.NewSource(seed)), nil),
		events: eventlog.NewLogger(cfg.EventsDir),
		tuning: cfg.Tuning,
		addr:   cfg.Addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
	s.hub = NewHub(s)

	if err := s.restore(); err != nil {
		log.Printf("Starting a fresh world: %v", err)
	}

	return s, nil
}

// restore loads the newest snapshot into the engine.
func (s *Server) restore() error {
	stored, err := s.db.LatestSnapshot()
	if err != nil {
		return err
	}
	var snap game.WorldSnapshot
	if err := json.Unmarshal(stored.Data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return s.engine.Restore(&snap)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Full world snapshot for web clients
	mux.HandleFunc("/api/gamestate", s.handleGameState)

	return mux
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	log.Printf("Valhalla Server")
	log.Printf("  Address: http://localhost%s", s.addr)
	log.Printf("  WebSocket: ws://localhost%s/ws", s.addr)
	log.Printf("  Tick: %s", s.tuning.TickInterval())
	log.Printf("")
	log.Printf("Press Ctrl+C to stop")

	s.startBackground()

	return s.server.ListenAndServe()
}

// startBackground runs the hub and the simulation loop.
func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.engine.Run(ctx, s.tuning.TickInterval(), s.publish)
	}()
}

// Stop gracefully shuts down the server, saving a final snapshot.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
	if err := s.saveSnapshot(s.engine.Snapshot()); err != nil {
		log.Printf("Failed to save final snapshot: %v", err)
	}
	if err := s.events.Close(); err != nil {
		log.Printf("Failed to close event log: %v", err)
	}
	return s.db.Close()
}

// publish fans a tick result out to clients, the event log and the database.
func (s *Server) publish(res game.TickResult) {
	every := uint64(s.tuning.SnapshotEveryTicks)
	persist := every > 0 && res.Tick%every == 0
	if !res.MapChanged && !res.ColorsChanged && len(res.Events) == 0 && !persist {
		return
	}

	snap := s.engine.Snapshot()

	if res.MapChanged {
		s.hub.BroadcastAll(protocol.TypeUpdateMap, protocol.UpdateMapPayload{
			Tick:       res.Tick,
			Fortresses: snap.Fortresses,
			Edges:      snap.Edges,
		})
	}
	if res.ColorsChanged {
		s.hub.BroadcastAll(protocol.TypeUpdateFaceColors, protocol.UpdateFaceColorsPayload{
			Tick:   res.Tick,
			Colors: snap.FaceColors,
		})
	}
	s.recordEvents(snap.ID, res.Events)

	if persist {
		if err := s.saveSnapshot(snap); err != nil {
			log.Printf("Failed to save snapshot at tick %d: %v", res.Tick, err)
		}
	}
}

// recordEvents writes events to the event log and history and relays them to clients.
func (s *Server) recordEvents(worldID string, events []game.Event) {
	if len(events) == 0 {
		return
	}
	if err := s.events.WriteEvents(worldID, events); err != nil {
		log.Printf("Failed to write event log: %v", err)
	}
	for _, ev := range events {
		name := ""
		if f, ok := s.engine.Faction(ev.Owner); ok {
			name = f.Name
		}
		if err := s.db.AddHistoryEvent(worldID, ev.Tick, ev.Owner, name, string(ev.Kind), describeEvent(ev, name)); err != nil {
			log.Printf("Failed to add history event: %v", err)
		}
		s.hub.BroadcastAll(protocol.TypeWorldEvent, protocol.WorldEventPayload{
			Kind:     string(ev.Kind),
			Tick:     ev.Tick,
			Fortress: ev.Fortress,
			Target:   ev.Target,
			Face:     ev.Face,
			Owner:    ev.Owner,
			Previous: ev.Previous,
			Unit:     ev.Unit,
			Amount:   ev.Amount,
		})
	}
}

func describeEvent(ev game.Event, name string) string {
	if name == "" {
		name = "Someone"
	}
	switch ev.Kind {
	case game.EventCapture:
		if ev.Target != "" {
			return fmt.Sprintf("%s captured %s", name, ev.Target)
		}
		return fmt.Sprintf("%s captured fortress %d", name, ev.Fortress)
	case game.EventSanctuarySpawn:
		return fmt.Sprintf("%s summoned a %s in sector %d", name, ev.Unit, ev.Face)
	case game.EventHomeAssigned:
		return fmt.Sprintf("%s settled sector %d", name, ev.Face)
	case game.EventRegenerate:
		return "The world was reforged"
	}
	return string(ev.Kind)
}

// saveSnapshot stores an lz4 compressed, hash-chained copy of the world.
func (s *Server) saveSnapshot(snap *game.WorldSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	hash, err := s.db.SaveSnapshot(snap.ID, snap.Tick, data)
	if err != nil {
		return err
	}
	if err := s.db.PruneSnapshots(snap.ID, keepSnapshots); err != nil {
		return err
	}
	log.Printf("Saved snapshot of world %s at tick %d (%s)", snap.ID, snap.Tick, hash[:12])
	return nil
}

// handleWebSocket upgrades HTTP connections to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(s.hub, conn, s.tuning.RateLimits)
	s.hub.Register(client)

	// Start client goroutines
	go client.WritePump()
	go client.ReadPump()
}

// handleGameState returns the full world snapshot.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.engine.Snapshot()); err != nil {
		log.Printf("Failed to encode game state: %v", err)
	}
}
