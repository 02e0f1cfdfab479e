package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	if err := d.Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	if d.TickInterval() != time.Second {
		t.Errorf("expected a 1s tick, got %s", d.TickInterval())
	}
	if got := d.GeneratorOptions().Subdivisions; got != d.World.Subdivisions {
		t.Errorf("generator subdivisions %d, want %d", got, d.World.Subdivisions)
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if got.TickIntervalMs != Default().TickIntervalMs {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("overrides keep unset fields", func(t *testing.T) {
		path := writeFile(t, `
tick_interval_ms: 250
world:
  subdivisions: 3
ai:
  factions:
    - name: Ymir
      race: Dark Elf
      difficulty: Hard
`)
		got, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if got.TickInterval() != 250*time.Millisecond {
			t.Errorf("expected 250ms tick, got %s", got.TickInterval())
		}
		if got.World.Subdivisions != 3 || got.World.Oceans != Default().World.Oceans {
			t.Errorf("unexpected world section %+v", got.World)
		}
		if len(got.AI.Factions) != 1 || got.AI.Factions[0].Name != "Ymir" {
			t.Errorf("unexpected AI factions %+v", got.AI.Factions)
		}
		if got.Gameplay.FlowRate != Default().Gameplay.FlowRate {
			t.Errorf("flow rate should keep its default, got %g", got.Gameplay.FlowRate)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := writeFile(t, "gameplay:\n  packet_speed: 2\n")
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "packet_speed") {
			t.Errorf("expected a packet_speed error, got %v", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "world: [unclosed\n")
		if _, err := Load(path); err == nil {
			t.Error("expected a parse error")
		}
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Tuning){
		"tick":     func(c *Tuning) { c.TickIntervalMs = 0 },
		"flow":     func(c *Tuning) { c.Gameplay.FlowRate = 0 },
		"garrison": func(c *Tuning) { c.Gameplay.NeutralMin = 200 },
		"upgrades": func(c *Tuning) { c.Gameplay.UpgradeCosts = []float64{50} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
