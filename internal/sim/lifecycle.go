package sim

import "math"

const (
	birthSupply    = 2.0
	birthCost      = 1.0
	birthCooldown  = 60.0
	birthRadius    = 3.0
	strengthMulMin = 0.8
	strengthMulMax = 1.25
)

// purgeDead removes every cell with health <= 0 from its bucket and the
// registry in one compaction of the registry order. It returns how many died.
func (w *World) purgeDead() int {
	kept := w.cells.order[:0]
	dead := 0
	for _, id := range w.cells.order {
		c := w.cells.get(id)
		if c.Health > 0 {
			kept = append(kept, id)
			continue
		}
		w.ChunkAt(c.Position).remove(c.Team, id)
		w.cells.release(id)
		dead++
	}
	w.cells.order = kept
	return dead
}

// canReproduce reports whether c has enough supply and its cooldown has run out.
func (w *World) canReproduce(c *Cell) bool {
	if c.Supply < birthSupply {
		return false
	}
	return !c.HasBorn || w.clock-c.LastBirth >= birthCooldown
}

// spawnChildren lets every eligible parent bud one child nearby.
func (w *World) spawnChildren() {
	// Children are appended to the order; they start with no supply and could
	// never qualify this pass, so only the existing parents are visited.
	n := len(w.cells.order)
	for k := 0; k < n; k++ {
		id := w.cells.order[k]
		parent := w.cells.get(id)
		if !w.canReproduce(parent) {
			continue
		}
		parent.Supply -= birthCost
		parent.LastBirth = w.clock
		parent.HasBorn = true

		child := w.newChild(*parent)
		w.addCell(child)
		w.stats.Births++
	}
}

// newChild samples a child of parent: position inside a small disc around
// the parent, random velocity, heading along the sampled angle and a
// jittered strength.
func (w *World) newChild(parent Cell) Cell {
	angle := w.rng.Float64() * 2 * math.Pi
	dist := math.Sqrt(w.rng.Float64()) * birthRadius
	pos := Vec2{
		X: math.Cos(angle)*dist + parent.Position.X,
		Y: math.Sin(angle)*dist + parent.Position.Y,
	}
	vel := Vec2{X: w.uniformSigned(), Y: w.uniformSigned()}
	mul := strengthMulMin + w.rng.Float64()*(strengthMulMax-strengthMulMin)

	return Cell{
		Team:      parent.Team,
		Seed:      w.identitySeed(),
		Strength:  parent.Strength * mul,
		Health:    initialHealth,
		Supply:    0,
		Velocity:  vel,
		Preferred: Vec2{X: math.Cos(angle), Y: math.Sin(angle)},
		Position:  w.clampToWorld(pos),
	}
}
