// Package tuning loads the numeric knobs for world generation and gameplay.
package tuning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"valhalla/pkg/sphere"
)

type Tuning struct {
	TickIntervalMs     int `yaml:"tick_interval_ms"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	CommandTimeoutMs   int `yaml:"command_timeout_ms"`

	World      World      `yaml:"world"`
	Gameplay   Gameplay   `yaml:"gameplay"`
	AI         AI         `yaml:"ai"`
	RateLimits RateLimits `yaml:"rate_limits"`
}

type World struct {
	Subdivisions int     `yaml:"subdivisions"`
	Oceans       int     `yaml:"oceans"`
	MinDeepSea   float64 `yaml:"min_deep_sea"`
	MaxDeepSea   float64 `yaml:"max_deep_sea"`

	HillChance  float64 `yaml:"hill_chance"`
	SwampChance float64 `yaml:"swamp_chance"`

	ForestFraction float64 `yaml:"forest_fraction"`
	ForestMinSize  int     `yaml:"forest_min_size"`
	ForestMaxSize  int     `yaml:"forest_max_size"`

	MountainFraction  float64 `yaml:"mountain_fraction"`
	MountainMinLength int     `yaml:"mountain_min_length"`
	MountainMaxLength int     `yaml:"mountain_max_length"`

	LavaRivers    int `yaml:"lava_rivers"`
	LavaMinLength int `yaml:"lava_min_length"`
	LavaMaxLength int `yaml:"lava_max_length"`

	WasteChance float64 `yaml:"waste_chance"`
	FarmChance  float64 `yaml:"farm_chance"`
}

type Gameplay struct {
	FlowRate         float64   `yaml:"flow_rate"`
	PacketSpeed      float64   `yaml:"packet_speed"`
	NeutralMin       int       `yaml:"neutral_min"`
	NeutralMax       int       `yaml:"neutral_max"`
	StartingUnits    float64   `yaml:"starting_units"`
	UpgradeCosts     []float64 `yaml:"upgrade_costs"`
	UpgradeBuffer    float64   `yaml:"upgrade_buffer"`
	DominanceBonus   float64   `yaml:"dominance_bonus"`
	MageBuff         float64   `yaml:"mage_buff"`
	HazardAttrition  float64   `yaml:"hazard_attrition"`
	TitanTierMinimum float64   `yaml:"titan_tier_minimum"`
}

type AI struct {
	Factions            []AIFaction `yaml:"factions"`
	ExpandThreshold     float64     `yaml:"expand_threshold"`
	RegrowThreshold     float64     `yaml:"regrow_threshold"`
	SpecializeThreshold float64     `yaml:"specialize_threshold"`
	UpgradeMargin       float64     `yaml:"upgrade_margin"`
	AllyBonus           float64     `yaml:"ally_bonus"`
	FarmBonus           float64     `yaml:"farm_bonus"`
}

type AIFaction struct {
	Name       string `yaml:"name"`
	Race       string `yaml:"race"`
	Difficulty string `yaml:"difficulty"`
}

type RateLimits struct {
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	CommandBurst      int     `yaml:"command_burst"`
}

// Default returns the built-in tuning.
func Default() Tuning {
	gen := sphere.DefaultOptions()
	return Tuning{
		TickIntervalMs:     1000,
		SnapshotEveryTicks: 60,
		CommandTimeoutMs:   250,
		World: World{
			Subdivisions:      gen.Subdivisions,
			Oceans:            gen.Oceans,
			MinDeepSea:        gen.MinDeepSea,
			MaxDeepSea:        gen.MaxDeepSea,
			HillChance:        gen.HillChance,
			SwampChance:       gen.SwampChance,
			ForestFraction:    gen.ForestFraction,
			ForestMinSize:     gen.ForestMinSize,
			ForestMaxSize:     gen.ForestMaxSize,
			MountainFraction:  gen.MountainFraction,
			MountainMinLength: gen.MountainMinLength,
			MountainMaxLength: gen.MountainMaxLength,
			LavaRivers:        gen.LavaRivers,
			LavaMinLength:     gen.LavaMinLength,
			LavaMaxLength:     gen.LavaMaxLength,
			WasteChance:       gen.WasteChance,
			FarmChance:        gen.FarmChance,
		},
		Gameplay: Gameplay{
			FlowRate:         0.5,
			PacketSpeed:      0.1,
			NeutralMin:       5,
			NeutralMax:       100,
			StartingUnits:    45,
			UpgradeCosts:     []float64{50, 120},
			UpgradeBuffer:    10,
			DominanceBonus:   1.5,
			MageBuff:         1.25,
			HazardAttrition:  0.05,
			TitanTierMinimum: 2.0,
		},
		AI: AI{
			Factions: []AIFaction{
				{Name: "Gorgon", Race: "Orc", Difficulty: "Normal"},
			},
			ExpandThreshold:     15,
			RegrowThreshold:     10,
			SpecializeThreshold: 10,
			UpgradeMargin:       20,
			AllyBonus:           10,
			FarmBonus:           10,
		},
		RateLimits: RateLimits{
			CommandsPerSecond: 10,
			CommandBurst:      20,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate rejects values the simulation cannot run with.
func (t Tuning) Validate() error {
	if t.TickIntervalMs <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive, got %d", t.TickIntervalMs)
	}
	if t.Gameplay.FlowRate <= 0 {
		return fmt.Errorf("flow_rate must be positive, got %g", t.Gameplay.FlowRate)
	}
	if t.Gameplay.PacketSpeed <= 0 || t.Gameplay.PacketSpeed > 1 {
		return fmt.Errorf("packet_speed must be in (0,1], got %g", t.Gameplay.PacketSpeed)
	}
	if t.Gameplay.NeutralMin > t.Gameplay.NeutralMax {
		return fmt.Errorf("neutral_min %d exceeds neutral_max %d", t.Gameplay.NeutralMin, t.Gameplay.NeutralMax)
	}
	if len(t.Gameplay.UpgradeCosts) != 2 {
		return fmt.Errorf("upgrade_costs needs 2 entries, got %d", len(t.Gameplay.UpgradeCosts))
	}
	return nil
}

// TickInterval returns the tick cadence.
func (t Tuning) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalMs) * time.Millisecond
}

// CommandTimeout bounds how long a command waits for the tick lock.
func (t Tuning) CommandTimeout() time.Duration {
	return time.Duration(t.CommandTimeoutMs) * time.Millisecond
}

// GeneratorOptions converts the world section for the sphere generator.
func (t Tuning) GeneratorOptions() sphere.GeneratorOptions {
	w := t.World
	return sphere.GeneratorOptions{
		Subdivisions:      w.Subdivisions,
		Oceans:            w.Oceans,
		MinDeepSea:        w.MinDeepSea,
		MaxDeepSea:        w.MaxDeepSea,
		HillChance:        w.HillChance,
		SwampChance:       w.SwampChance,
		ForestFraction:    w.ForestFraction,
		ForestMinSize:     w.ForestMinSize,
		ForestMaxSize:     w.ForestMaxSize,
		MountainFraction:  w.MountainFraction,
		MountainMinLength: w.MountainMinLength,
		MountainMaxLength: w.MountainMaxLength,
		LavaRivers:        w.LavaRivers,
		LavaMinLength:     w.LavaMinLength,
		LavaMaxLength:     w.LavaMaxLength,
		WasteChance:       w.WasteChance,
		FarmChance:        w.FarmChance,
	}
}
