package sim

import (
	"errors"
	"fmt"
	"image/color"
	"math"
)

// ErrInvalidSettings is wrapped by every settings validation failure.
var ErrInvalidSettings = errors.New("invalid world settings")

// Settings describes a world. All fields are fixed once NewWorld returns,
// except ChunksX/ChunksY which NewWorld derives from the world and chunk size.
type Settings struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	ChunkSize int `json:"chunk_size"` // pixels per chunk edge

	NumTeams   int          `json:"num_teams"`
	TeamColors []color.RGBA `json:"team_colors"`
	TeamSpawns []Vec2       `json:"team_spawns"`

	SpawnRadius         float64 `json:"spawn_radius"`
	InitialCellsPerTeam int     `json:"initial_cells_per_team"`
	AttackRange         float64 `json:"attack_range"`
	CellRadius          float64 `json:"cell_radius"` // draw radius only

	// Workers bounds the chunk-parallel passes. 0 or 1 keeps every pass serial.
	Workers int `json:"workers"`

	// Derived.
	ChunksX int `json:"chunks_x"`
	ChunksY int `json:"chunks_y"`
}

// DefaultSettings returns a four-corner, four-team world.
func DefaultSettings() Settings {
	return Settings{
		Width:     1280,
		Height:    720,
		ChunkSize: 16,
		NumTeams:  4,
		TeamColors: []color.RGBA{
			{R: 220, G: 50, B: 50, A: 255},
			{R: 50, G: 110, B: 230, A: 255},
			{R: 60, G: 190, B: 80, A: 255},
			{R: 230, G: 200, B: 40, A: 255},
		},
		TeamSpawns: []Vec2{
			{X: 160, Y: 120},
			{X: 1120, Y: 600},
			{X: 1120, Y: 120},
			{X: 160, Y: 600},
		},
		SpawnRadius:         48,
		InitialCellsPerTeam: 60,
		AttackRange:         6,
		CellRadius:          2,
	}
}

// Validate reports the first inconsistency in s.
func (s Settings) Validate() error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("%w: world size %dx%d", ErrInvalidSettings, s.Width, s.Height)
	case s.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size %d", ErrInvalidSettings, s.ChunkSize)
	case s.NumTeams <= 0:
		return fmt.Errorf("%w: %d teams", ErrInvalidSettings, s.NumTeams)
	case len(s.TeamColors) != s.NumTeams:
		return fmt.Errorf("%w: %d team colours for %d teams", ErrInvalidSettings, len(s.TeamColors), s.NumTeams)
	case len(s.TeamSpawns) != s.NumTeams:
		return fmt.Errorf("%w: %d team spawns for %d teams", ErrInvalidSettings, len(s.TeamSpawns), s.NumTeams)
	case s.InitialCellsPerTeam < 0:
		return fmt.Errorf("%w: initial cells per team %d", ErrInvalidSettings, s.InitialCellsPerTeam)
	case s.SpawnRadius < 0 || s.AttackRange < 0:
		return fmt.Errorf("%w: negative spawn radius or attack range", ErrInvalidSettings)
	}
	return nil
}

// deriveGrid fills ChunksX/ChunksY.
func (s *Settings) deriveGrid() {
	s.ChunksX = int(math.Ceil(float64(s.Width) / float64(s.ChunkSize)))
	s.ChunksY = int(math.Ceil(float64(s.Height) / float64(s.ChunkSize)))
}

// maxPos is the largest in-bounds position on each axis.
func (s Settings) maxPos() Vec2 {
	return Vec2{X: float64(s.Width) - boundsEpsilon, Y: float64(s.Height) - boundsEpsilon}
}
