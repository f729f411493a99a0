package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	f, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := f.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	def := sim.DefaultSettings()
	if s.Width != def.Width || s.NumTeams != def.NumTeams || s.TeamColors[1] != def.TeamColors[1] {
		t.Fatalf("default config does not match default settings: %+v", s)
	}
}

func TestLoad_ShippedConfig(t *testing.T) {
	f, err := Load(filepath.Join("..", "..", "configs", "territory.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := f.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.NumTeams != 4 || s.TeamSpawns[1] != (sim.Vec2{X: 1120, Y: 600}) {
		t.Fatalf("unexpected teams: %d %v", s.NumTeams, s.TeamSpawns)
	}
	if s.TeamColors[0] != (color.RGBA{R: 220, G: 20, B: 60, A: 255}) {
		t.Fatalf("crimson decoded as %v", s.TeamColors[0])
	}
	if s.Workers < 1 {
		t.Fatalf("auto workers should resolve to at least 1, got %d", s.Workers)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParse_OverridesOnTopOfDefaults(t *testing.T) {
	f, err := Parse([]byte(`
seed: 99
world:
  width: 320
  height: 240
teams:
  - color: "#102030"
    spawn: [40, 40]
  - color: teal
    spawn: [280, 200]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Seed != 99 || f.World.Width != 320 || f.World.ChunkSize != 16 {
		t.Fatalf("unexpected merge result: %+v", f)
	}
	if len(f.Teams) != 2 {
		t.Fatalf("teams list should replace the defaults, got %d teams", len(f.Teams))
	}
	s, err := f.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.TeamColors[0] != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}) {
		t.Fatalf("hex colour decoded as %v", s.TeamColors[0])
	}
	if _, err := sim.NewWorld(s, f.Seed); err != nil {
		t.Fatalf("NewWorld from parsed config: %v", err)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	f, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Teams) != 4 {
		t.Fatalf("expected default teams, got %d", len(f.Teams))
	}
}

func TestParse_SchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "colour: red\n",
		"zero width":       "world:\n  width: 0\n",
		"negative workers": "workers: -2\n",
		"string seed":      "seed: abc\n",
		"short spawn":      "teams:\n  - color: red\n    spawn: [1]\n",
		"no teams":         "teams: []\n",
		"zero elapsed":     "elapsed: 0\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrSchema) {
			t.Errorf("%s: expected ErrSchema, got %v", name, err)
		}
	}
}

func TestSettings_BadColour(t *testing.T) {
	f := Default()
	f.Teams[2].Color = "not-a-colour"
	if _, err := f.Settings(); err == nil {
		t.Fatal("expected an error for an unknown colour")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#ff8000", color.RGBA{R: 255, G: 128, A: 255}, true},
		{"  Navy ", color.RGBA{B: 128, A: 255}, true},
		{"#fff", color.RGBA{}, false},
		{"#gg0000", color.RGBA{}, false},
		{"blurple", color.RGBA{}, false},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		if (err == nil) != c.ok {
			t.Errorf("ParseColor(%q) error = %v, want ok=%v", c.in, err, c.ok)
			continue
		}
		if c.ok && got != c.want {
			t.Errorf("ParseColor(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestResolveWorkers(t *testing.T) {
	if got := ResolveWorkers(3); got != 3 {
		t.Fatalf("explicit worker count changed to %d", got)
	}
	if got := ResolveWorkers(0); got < 1 {
		t.Fatalf("auto worker count %d", got)
	}
}
