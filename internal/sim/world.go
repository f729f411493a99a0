package sim

import (
	"fmt"
	"image"
	"math"
	"math/rand"
)

// boundsEpsilon keeps clamped positions strictly inside [0, dimension).
const boundsEpsilon = 1e-4

// TickStats counts what happened during the most recent Step.
type TickStats struct {
	Births      int     `json:"births"`
	Starved     int     `json:"starved"`
	Killed      int     `json:"killed"`
	DamageDealt float64 `json:"damage_dealt"`
	SupplyDrawn float64 `json:"supply_drawn"`
	OwnerFlips  int     `json:"owner_flips"`
}

// World is the authoritative simulation state. It is not safe for concurrent
// use; readers (renderer, observers) must run between steps.
type World struct {
	settings Settings
	rng      *rand.Rand

	clock float64
	tick  int

	chunks    []Chunk
	cells     registry
	walkOrder []ChunkCoord // shuffled chunk order, reserved for scheduling
	territory *image.NRGBA // one pixel per chunk, render-facing

	fields chunkFields
	pool   *Pool
	stats  TickStats
}

// NewWorld builds a world deterministically from settings and seed. The
// random stream is consumed in a fixed order: walk-order shuffle, initial
// cells team by team, then one generation sample per chunk.
func NewWorld(settings Settings, seed int64) (*World, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.deriveGrid()
	cols, rows := settings.ChunksX, settings.ChunksY

	w := &World{
		settings:  settings,
		rng:       rand.New(rand.NewSource(seed)), // #nosec G404 -- deterministic simulation
		chunks:    make([]Chunk, cols*rows),
		territory: image.NewNRGBA(image.Rect(0, 0, cols, rows)),
		fields:    newChunkFields(cols * rows),
		pool:      NewPool(settings.Workers),
	}

	w.walkOrder = make([]ChunkCoord, 0, cols*rows)
	for x := 0; x < cols; x++ {
		for y := 0; y < rows; y++ {
			w.walkOrder = append(w.walkOrder, ChunkCoord{X: x, Y: y})
		}
	}
	for i := 0; i < len(w.walkOrder)-1; i++ {
		j := i + w.rng.Intn(len(w.walkOrder)-i)
		w.walkOrder[i], w.walkOrder[j] = w.walkOrder[j], w.walkOrder[i]
	}

	for i := range w.chunks {
		w.chunks[i] = newChunk(settings.NumTeams)
	}

	for team := 0; team < settings.NumTeams; team++ {
		for i := 0; i < settings.InitialCellsPerTeam; i++ {
			w.spawnInitialCell(team)
		}
	}

	for i := range w.chunks {
		w.chunks[i].Generation = w.rng.ExpFloat64()
	}

	for i := range w.chunks {
		w.fields.prevOwners[i] = w.chunks[i].Owner()
		w.paintTerritory(i)
	}
	return w, nil
}

// spawnInitialCell places one cell uniformly inside its team's spawn disc and
// claims the landing chunk for the team.
func (w *World) spawnInitialCell(team int) {
	angle := w.rng.Float64() * 2 * math.Pi
	dist := math.Sqrt(w.rng.Float64()) * w.settings.SpawnRadius
	spawn := w.settings.TeamSpawns[team]

	pos := Vec2{X: math.Cos(angle)*dist + spawn.X, Y: math.Sin(angle)*dist + spawn.Y}
	vel := Vec2{X: w.uniformSigned(), Y: w.uniformSigned()}

	c := Cell{
		Team:      team,
		Seed:      w.identitySeed(),
		Strength:  initialStrength,
		Health:    initialHealth,
		Supply:    initialSupply,
		Velocity:  vel,
		Preferred: Vec2{X: math.Cos(angle), Y: math.Sin(angle)},
		Position:  w.clampToWorld(pos),
	}
	id := w.addCell(c)

	chunk := w.ChunkAt(w.cells.get(id).Position)
	if chunk.Ownership[team] != 1 {
		chunk.setOwnerOnly(team)
	}
}

// uniformSigned samples uniform [-1, 1).
func (w *World) uniformSigned() float64 {
	return w.rng.Float64()*2 - 1
}

// identitySeed samples uniform [-2^30, 2^30].
func (w *World) identitySeed() int32 {
	return int32(w.rng.Int63n(1<<31+1) - 1<<30)
}

func (w *World) clampToWorld(p Vec2) Vec2 {
	hi := w.settings.maxPos()
	return Vec2{X: clamp(p.X, 0, hi.X), Y: clamp(p.Y, 0, hi.Y)}
}

// Step advances the clock by elapsed and runs one full tick. The pass order
// is fixed: combat sees positions moved this tick, while territory and
// supply see the population left by the previous tick's movement.
// elapsed must be >= 0; the velocity blend is only meaningful up to 1.
func (w *World) Step(elapsed float64) {
	w.clock += elapsed
	w.tick++
	w.stats = TickStats{}

	w.updateTerritories(elapsed)
	w.updateChunkSupply(elapsed)
	w.updateCellSupply(elapsed)
	w.updateVelocities(elapsed)
	w.updatePositions(elapsed)
	w.attackNearby(elapsed)
	w.spawnChildren()
}

// --- Grid helpers ---

// WorldToChunk maps a world position to its chunk coordinate. The result is
// only in-grid for positions inside the world.
func (w *World) WorldToChunk(p Vec2) ChunkCoord {
	cs := float64(w.settings.ChunkSize)
	return ChunkCoord{X: int(p.X / cs), Y: int(p.Y / cs)}
}

func (w *World) chunkIndex(c ChunkCoord) int {
	return c.X + c.Y*w.settings.ChunksX
}

// Chunk returns the chunk at grid coordinate (x, y). Out-of-grid access panics.
func (w *World) Chunk(x, y int) *Chunk {
	return &w.chunks[w.chunkIndex(ChunkCoord{X: x, Y: y})]
}

// ChunkAt returns the chunk containing world position p.
func (w *World) ChunkAt(p Vec2) *Chunk {
	return &w.chunks[w.chunkIndex(w.WorldToChunk(p))]
}

// addCell registers c and drops it into the bucket under its position.
func (w *World) addCell(c Cell) CellID {
	id := w.cells.insert(c)
	w.ChunkAt(c.Position).insert(c.Team, id)
	return id
}

// moveCell sets a new position and migrates the bucket entry when the cell
// crosses a chunk border.
func (w *World) moveCell(id CellID, to Vec2) {
	c := w.cells.get(id)
	from := w.WorldToChunk(c.Position)
	dest := w.WorldToChunk(to)
	c.Position = to
	if from == dest {
		return
	}
	w.chunks[w.chunkIndex(dest)].insert(c.Team, id)
	w.chunks[w.chunkIndex(from)].remove(c.Team, id)
}

// --- Read-only accessors ---

// Settings returns the settings including the derived grid size.
func (w *World) Settings() Settings { return w.settings }

// Clock returns the accumulated simulated time.
func (w *World) Clock() float64 { return w.clock }

// Tick returns how many steps have run.
func (w *World) Tick() int { return w.tick }

// Stats returns counters from the most recent step.
func (w *World) Stats() TickStats { return w.stats }

// CellCount returns the number of live cells.
func (w *World) CellCount() int { return w.cells.len() }

// CellIDs returns live cell IDs in registry order. The slice is a copy.
func (w *World) CellIDs() []CellID {
	out := make([]CellID, len(w.cells.order))
	copy(out, w.cells.order)
	return out
}

// Cell returns a copy of a live cell.
func (w *World) Cell(id CellID) (Cell, bool) {
	if !w.cells.contains(id) {
		return Cell{}, false
	}
	return *w.cells.get(id), true
}

// EachCell calls fn for every live cell in registry order. fn must not mutate the world.
func (w *World) EachCell(fn func(id CellID, c *Cell)) {
	for _, id := range w.cells.order {
		fn(id, w.cells.get(id))
	}
}

// TerritoryImage returns the overlay with one pixel per chunk. Callers must
// treat it as read-only.
func (w *World) TerritoryImage() *image.NRGBA { return w.territory }

// WalkOrder returns the shuffled chunk coordinate permutation drawn at construction.
func (w *World) WalkOrder() []ChunkCoord {
	out := make([]ChunkCoord, len(w.walkOrder))
	copy(out, w.walkOrder)
	return out
}

// Workers returns the width of the chunk-pass pool.
func (w *World) Workers() int { return w.pool.Workers() }

// String is a one-line summary for logs.
func (w *World) String() string {
	return fmt.Sprintf("world t=%.2f tick=%d cells=%d grid=%dx%d",
		w.clock, w.tick, w.cells.len(), w.settings.ChunksX, w.settings.ChunksY)
}
