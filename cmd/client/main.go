package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"valhalla/internal/client"
)

func main() {
	profile := flag.String("profile", "", "Profile name for separate config (e.g., bot1, bot2)")
	server := flag.String("server", "", "Server address, overrides the saved one")
	name := flag.String("name", "", "Faction name for a new registration")
	race := flag.String("race", "", "Race for a new registration (Human, Orc, Dark Elf, Troll)")
	flag.Parse()

	client.SetProfile(*profile)

	cfg, err := client.LoadConfig()
	if err != nil {
		log.Printf("Using default config: %v", err)
	}
	if *server != "" {
		cfg.LastServer = *server
	}
	if *name != "" {
		cfg.FactionName = *name
	}
	if *race != "" {
		cfg.Race = *race
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot := client.NewBot(cfg)
	if err := bot.Run(ctx); err != nil {
		log.Fatalf("Bot stopped: %v", err)
	}
	log.Println("Bot stopped")
}
