package sim

import (
	"image/color"
	"testing"
)

// --- World builders ---

// emptySettings returns a world with no initial cells, teams spread along the
// top edge.
func emptySettings(teams, width, height, chunk int) Settings {
	s := Settings{
		Width:       width,
		Height:      height,
		ChunkSize:   chunk,
		NumTeams:    teams,
		AttackRange: 10,
		CellRadius:  2,
	}
	for i := 0; i < teams; i++ {
		s.TeamColors = append(s.TeamColors, color.RGBA{R: uint8(60 * i), G: 100, B: 200, A: 255})
		s.TeamSpawns = append(s.TeamSpawns, Vec2{X: float64(width) / 2, Y: float64(height) / 2})
	}
	return s
}

func newEmptyWorld(t *testing.T, teams, width, height, chunk int) *World {
	t.Helper()
	w, err := NewWorld(emptySettings(teams, width, height, chunk), 7)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

// placeCell adds a fresh cell at (x, y).
func placeCell(w *World, team int, x, y float64) CellID {
	return w.addCell(Cell{
		Team:     team,
		Strength: 1,
		Health:   1,
		Supply:   1,
		Position: Vec2{X: x, Y: y},
	})
}

func mustCell(t *testing.T, w *World, id CellID) Cell {
	t.Helper()
	c, ok := w.Cell(id)
	if !ok {
		t.Fatalf("cell %d not in registry", id)
	}
	return c
}

// --- Invariant helpers ---

// checkRegistryBuckets verifies every live cell appears in exactly one
// bucket, the one under its position, and every bucket entry is live.
func checkRegistryBuckets(t *testing.T, w *World) {
	t.Helper()
	seen := make(map[CellID]int, w.CellCount())
	cols := w.settings.ChunksX
	for i := range w.chunks {
		at := ChunkCoord{X: i % cols, Y: i / cols}
		for team := 0; team < w.settings.NumTeams; team++ {
			for _, id := range w.chunks[i].Bucket(team) {
				c, ok := w.Cell(id)
				if !ok {
					t.Errorf("bucket %v team %d holds dead id %d", at, team, id)
					continue
				}
				if c.Team != team {
					t.Errorf("cell %d of team %d filed under team %d", id, c.Team, team)
				}
				if got := w.WorldToChunk(c.Position); got != at {
					t.Errorf("cell %d at %v filed in chunk %v, expected %v", id, c.Position, at, got)
				}
				seen[id]++
			}
		}
	}
	for _, id := range w.CellIDs() {
		if seen[id] != 1 {
			t.Errorf("cell %d referenced by %d buckets", id, seen[id])
		}
	}
	if len(seen) != w.CellCount() {
		t.Errorf("buckets reference %d cells, registry has %d", len(seen), w.CellCount())
	}
}

// checkNoDead verifies no cell with health <= 0 is still registered.
func checkNoDead(t *testing.T, w *World) {
	t.Helper()
	w.EachCell(func(id CellID, c *Cell) {
		if c.Health <= 0 {
			t.Errorf("cell %d survived with health %.4f", id, c.Health)
		}
	})
}

// checkInBounds verifies positions stay inside the world.
func checkInBounds(t *testing.T, w *World) {
	t.Helper()
	w.EachCell(func(id CellID, c *Cell) {
		p := c.Position
		if p.X < 0 || p.Y < 0 || p.X >= float64(w.settings.Width) || p.Y >= float64(w.settings.Height) {
			t.Errorf("cell %d out of bounds at (%.3f,%.3f)", id, p.X, p.Y)
		}
	})
}

// --- Invariant runs ---

func TestInvariants_DefaultWorldHoldsEveryTick(t *testing.T) {
	h, err := NewHarness(WithSeed(3), WithElapsed(0.05))
	if err != nil {
		t.Fatalf("NewHarness: %v", err)
	}
	checkRegistryBuckets(t, h.World)
	for i := 0; i < 200; i++ {
		h.RunTicks(1)
		checkRegistryBuckets(t, h.World)
		checkNoDead(t, h.World)
		checkInBounds(t, h.World)
		if t.Failed() {
			t.Fatalf("invariants broken at T=%d\n%s", h.World.Tick(), h.SimLog.Summary(h.World))
		}
	}
}

func TestInvariants_CrowdedCombatPurgesConsistently(t *testing.T) {
	s := DefaultSettings()
	s.Width, s.Height = 256, 256
	s.NumTeams = 2
	s.TeamColors = s.TeamColors[:2]
	s.TeamSpawns = []Vec2{{X: 120, Y: 128}, {X: 136, Y: 128}}
	s.SpawnRadius = 20
	s.InitialCellsPerTeam = 80
	s.AttackRange = 12

	h, err := NewHarness(WithSettings(s), WithSeed(11), WithElapsed(0.2))
	if err != nil {
		t.Fatalf("NewHarness: %v", err)
	}
	start := h.World.CellCount()
	h.RunTicks(60)
	checkRegistryBuckets(t, h.World)
	checkNoDead(t, h.World)
	if h.World.CellCount() >= start {
		t.Fatalf("expected losses in a crowded melee, %d → %d", start, h.World.CellCount())
	}
	if h.SimLog.CountCategory("combat", "killed") == 0 {
		t.Fatalf("expected combat kills to be logged\n%s", h.SimLog.Format())
	}
}
