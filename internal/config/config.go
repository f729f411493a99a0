// Package config loads run configuration from YAML and turns it into
// simulation settings.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

// ErrSchema is wrapped by every schema validation failure.
var ErrSchema = errors.New("config does not match schema")

//go:embed settings.schema.json
var schemaSource string

const schemaURL = "territory://settings.schema.json"

// File is the on-disk configuration.
type File struct {
	Seed    int64   `yaml:"seed"`
	Elapsed float64 `yaml:"elapsed"` // simulated time per tick
	Workers int     `yaml:"workers"` // 0 = one per logical CPU

	World     WorldConfig     `yaml:"world"`
	Teams     []TeamConfig    `yaml:"teams"`
	Observer  ObserverConfig  `yaml:"observer"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Width               int     `yaml:"width"`
	Height              int     `yaml:"height"`
	ChunkSize           int     `yaml:"chunk_size"`
	SpawnRadius         float64 `yaml:"spawn_radius"`
	InitialCellsPerTeam int     `yaml:"initial_cells_per_team"`
	AttackRange         float64 `yaml:"attack_range"`
	CellRadius          float64 `yaml:"cell_radius"`
}

// TeamConfig is one team. Color is a CSS colour name or "#rrggbb".
type TeamConfig struct {
	Color string     `yaml:"color"`
	Spawn [2]float64 `yaml:"spawn"`
}

type ObserverConfig struct {
	Addr         string `yaml:"addr"` // empty disables the observer
	PublishEvery int    `yaml:"publish_every"`
}

type TelemetryConfig struct {
	Dir         string `yaml:"dir"` // empty disables the tick log
	DB          string `yaml:"db"`  // empty disables the stats index
	ReportEvery int    `yaml:"report_every"`
	Window      int    `yaml:"window"`
}

// Default mirrors sim.DefaultSettings.
func Default() File {
	s := sim.DefaultSettings()
	f := File{
		Seed:    1,
		Elapsed: 1.0 / 60,
		Workers: 0,
		World: WorldConfig{
			Width:               s.Width,
			Height:              s.Height,
			ChunkSize:           s.ChunkSize,
			SpawnRadius:         s.SpawnRadius,
			InitialCellsPerTeam: s.InitialCellsPerTeam,
			AttackRange:         s.AttackRange,
			CellRadius:          s.CellRadius,
		},
		Observer:  ObserverConfig{PublishEvery: 6},
		Telemetry: TelemetryConfig{ReportEvery: 60, Window: 120},
	}
	for i := 0; i < s.NumTeams; i++ {
		c := s.TeamColors[i]
		f.Teams = append(f.Teams, TeamConfig{
			Color: fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B),
			Spawn: [2]float64{s.TeamSpawns[i].X, s.TeamSpawns[i].Y},
		})
	}
	return f
}

// Load reads path. An empty path returns the defaults.
func Load(path string) (File, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}
	f, err := Parse(raw)
	if err != nil {
		return f, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates raw YAML against the embedded schema and decodes it over
// the defaults. A teams list, when present, replaces the default teams.
func Parse(raw []byte) (File, error) {
	f := Default()
	if err := validate(raw); err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("decode: %w", err)
	}
	return f, nil
}

var schema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	s, err := jsonschema.CompileString(schemaURL, schemaSource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
})

// validate checks the YAML document against the schema. The document goes
// through JSON first so the validator sees JSON number types.
func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// Settings builds simulation settings from the file.
func (f File) Settings() (sim.Settings, error) {
	s := sim.Settings{
		Width:               f.World.Width,
		Height:              f.World.Height,
		ChunkSize:           f.World.ChunkSize,
		NumTeams:            len(f.Teams),
		SpawnRadius:         f.World.SpawnRadius,
		InitialCellsPerTeam: f.World.InitialCellsPerTeam,
		AttackRange:         f.World.AttackRange,
		CellRadius:          f.World.CellRadius,
		Workers:             ResolveWorkers(f.Workers),
	}
	for i, t := range f.Teams {
		c, err := ParseColor(t.Color)
		if err != nil {
			return s, fmt.Errorf("team %d: %w", i, err)
		}
		s.TeamColors = append(s.TeamColors, c)
		s.TeamSpawns = append(s.TeamSpawns, sim.Vec2{X: t.Spawn[0], Y: t.Spawn[1]})
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// ParseColor accepts "#rrggbb" or a CSS colour name.
func ParseColor(v string) (color.RGBA, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if strings.HasPrefix(v, "#") {
		if len(v) != 7 {
			return color.RGBA{}, fmt.Errorf("colour %q: want #rrggbb", v)
		}
		n, err := strconv.ParseUint(v[1:], 16, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("colour %q: %w", v, err)
		}
		return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
	}
	c, ok := colornames.Map[v]
	if !ok {
		return color.RGBA{}, fmt.Errorf("unknown colour %q", v)
	}
	return c, nil
}

// ResolveWorkers maps 0 to the logical CPU count.
func ResolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		return 1
	}
	return count
}
