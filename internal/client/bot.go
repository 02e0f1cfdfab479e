package client

import (
	"context"
	"fmt"
	"log"
	"time"

	"valhalla/internal/game"
	"valhalla/internal/protocol"
)

// Bot plays one faction: it authenticates, claims a home sector and keeps
// toggling paths from a mirror of the fortresses it receives.
type Bot struct {
	cfg *Config
	net *NetworkClient

	factionID  string
	homeFace   int
	adjacency  [][]int
	fortresses []*game.Fortress
}

// NewBot creates a bot for the given configuration.
func NewBot(cfg *Config) *Bot {
	return &Bot{
		cfg:      cfg,
		net:      NewNetworkClient(),
		homeFace: -1,
	}
}

// Run connects and plays until ctx is done or the connection drops.
func (b *Bot) Run(ctx context.Context) error {
	dropped := make(chan error, 1)
	b.net.OnDisconnect = func(err error) { dropped <- err }

	if err := b.net.Connect(ctx, b.cfg.LastServer); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer b.net.Disconnect()

	think := time.NewTicker(time.Duration(b.cfg.ThinkMillis) * time.Millisecond)
	defer think.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-dropped:
			if err == nil {
				err = ErrNotConnected
			}
			return err
		case msg := <-b.net.RecvChan():
			if err := b.handle(msg); err != nil {
				log.Printf("Bot: %v", err)
			}
		case <-think.C:
			b.think()
		}
	}
}

func (b *Bot) handle(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.TypeWelcome:
		return b.net.SendPayload(protocol.TypeAuthenticate, protocol.AuthenticatePayload{
			Token: b.cfg.FactionToken,
			Name:  b.cfg.FactionName,
			Race:  b.cfg.Race,
		})

	case protocol.TypeAuthResult:
		var p protocol.AuthResultPayload
		if err := msg.ParsePayload(&p); err != nil {
			return err
		}
		if !p.Success {
			return fmt.Errorf("authentication refused: %s", p.Error)
		}
		b.factionID = p.FactionID
		b.homeFace = p.HomeFace
		b.cfg.FactionID = p.FactionID
		b.cfg.FactionToken = p.Token
		b.cfg.FactionName = p.Name
		if err := b.cfg.Save(); err != nil {
			log.Printf("Bot: failed to save config: %v", err)
		}
		log.Printf("Bot authenticated as %s (%s)", p.Name, p.FactionID)
		if b.homeFace < 0 {
			if err := b.net.SendPayload(protocol.TypeClaimHome, protocol.ClaimHomePayload{}); err != nil {
				return err
			}
		}
		return b.net.SendPayload(protocol.TypeRequestState, struct{}{})

	case protocol.TypeHomeAssigned:
		var p protocol.HomeAssignedPayload
		if err := msg.ParsePayload(&p); err != nil {
			return err
		}
		b.homeFace = p.Face
		log.Printf("Bot settled sector %d", p.Face)

	case protocol.TypeWorldState:
		var p struct {
			State game.WorldSnapshot `json:"state"`
		}
		if err := msg.ParsePayload(&p); err != nil {
			return err
		}
		b.adjacency = p.State.Adjacency
		b.fortresses = p.State.Fortresses

	case protocol.TypeUpdateMap:
		var p struct {
			Fortresses []*game.Fortress `json:"fortresses"`
		}
		if err := msg.ParsePayload(&p); err != nil {
			return err
		}
		if len(p.Fortresses) == len(b.adjacency) {
			b.fortresses = p.Fortresses
		}

	case protocol.TypeWorldRestarted:
		b.homeFace = -1
		b.adjacency = nil
		b.fortresses = nil
		return b.net.SendPayload(protocol.TypeClaimHome, protocol.ClaimHomePayload{})

	case protocol.TypeError:
		var p protocol.ErrorPayload
		if err := msg.ParsePayload(&p); err != nil {
			return err
		}
		return fmt.Errorf("server error %s: %s", p.Code, p.Message)
	}
	return nil
}

// think sends this round's path toggles.
func (b *Bot) think() {
	if b.factionID == "" || b.fortresses == nil {
		return
	}
	for _, m := range PlanMoves(b.factionID, b.fortresses, b.adjacency, b.cfg) {
		if err := b.net.SendPayload(protocol.TypeSubmitMove, m); err != nil {
			log.Printf("Bot: %v", err)
			return
		}
	}
}

// PlanMoves decides which paths to toggle for a faction. A weak fortress cuts
// all of its paths; a strong one with a free slot opens one toward the
// best-scoring neighbor, preferring weak hostile fortresses.
func PlanMoves(factionID string, fortresses []*game.Fortress, adjacency [][]int, cfg *Config) []protocol.SubmitMovePayload {
	var moves []protocol.SubmitMovePayload
	for _, f := range fortresses {
		if f.Owner != factionID || f.ID >= len(adjacency) {
			continue
		}
		if f.Units < cfg.Regrow {
			for _, p := range f.Paths {
				moves = append(moves, protocol.SubmitMovePayload{Source: f.ID, Target: p})
			}
			continue
		}
		if f.Units <= cfg.Expand || len(f.Paths) >= f.Tier {
			continue
		}

		best, bestScore := -1, 0.0
		for _, id := range adjacency[f.ID] {
			if f.HasPath(id) || id >= len(fortresses) {
				continue
			}
			n := fortresses[id]
			score := -n.Units
			if n.Owner != factionID {
				score += f.Units * (0.5 + cfg.Aggression)
			}
			if best < 0 || score > bestScore {
				best, bestScore = id, score
			}
		}
		if best >= 0 && bestScore > 0 {
			moves = append(moves, protocol.SubmitMovePayload{Source: f.ID, Target: best})
		}
	}
	return moves
}
