package sim

import "fmt"

// Snapshot is a deep, read-only copy of the world for observers and telemetry.
type Snapshot struct {
	Tick      int            `json:"tick"`
	Clock     float64        `json:"clock"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	ChunkSize int            `json:"chunk_size"`
	Cols      int            `json:"cols"`
	Rows      int            `json:"rows"`
	Teams     int            `json:"teams"`
	Chunks    []ChunkView    `json:"chunks"` // row-major, index x + y*Cols
	Cells     []CellView     `json:"cells"`
	Stats     TickStats      `json:"stats"`
	Colors    []TeamColorHex `json:"colors"`
}

// ChunkView is the serialisable state of one chunk.
type ChunkView struct {
	Owner     int       `json:"owner"`
	Ownership []float64 `json:"ownership"`
	Supply    float64   `json:"supply"`
	Counts    []int     `json:"counts"`
}

// CellView is the serialisable state of one cell.
type CellView struct {
	ID       CellID  `json:"id"`
	Team     int     `json:"team"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   float64 `json:"health"`
	Supply   float64 `json:"supply"`
	Strength float64 `json:"strength"`
}

// TeamColorHex is a team colour as "#rrggbb".
type TeamColorHex string

// Snapshot copies the current state.
func (w *World) Snapshot() Snapshot {
	s := w.settings
	snap := Snapshot{
		Tick:      w.tick,
		Clock:     w.clock,
		Width:     s.Width,
		Height:    s.Height,
		ChunkSize: s.ChunkSize,
		Cols:      s.ChunksX,
		Rows:      s.ChunksY,
		Teams:     s.NumTeams,
		Chunks:    make([]ChunkView, len(w.chunks)),
		Cells:     make([]CellView, 0, w.cells.len()),
		Stats:     w.stats,
		Colors:    make([]TeamColorHex, s.NumTeams),
	}
	for i, c := range s.TeamColors {
		snap.Colors[i] = TeamColorHex(hexColor(c.R, c.G, c.B))
	}
	for i := range w.chunks {
		ch := &w.chunks[i]
		view := ChunkView{
			Owner:     ch.Owner(),
			Ownership: append([]float64(nil), ch.Ownership...),
			Supply:    ch.Supply,
			Counts:    make([]int, s.NumTeams),
		}
		for team := range view.Counts {
			view.Counts[team] = ch.Count(team)
		}
		snap.Chunks[i] = view
	}
	for _, id := range w.cells.order {
		c := w.cells.get(id)
		snap.Cells = append(snap.Cells, CellView{
			ID:       id,
			Team:     c.Team,
			X:        c.Position.X,
			Y:        c.Position.Y,
			Health:   c.Health,
			Supply:   c.Supply,
			Strength: c.Strength,
		})
	}
	return snap
}

func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
