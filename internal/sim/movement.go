package sim

import "math"

const (
	viewRange        = 2.0  // chunks
	targetSpeed      = 50.0 // pixels per unit time
	headingWeight    = 1.0 / 1000
	normalizeEpsilon = 1e-8
)

// updateVelocities steers every cell away from chunks its team already holds
// densely and toward weakly held ones, nudged by its preferred heading.
// elapsed doubles as the smoothing weight of the blend.
func (w *World) updateVelocities(elapsed float64) {
	for _, id := range w.cells.order {
		c := w.cells.get(id)
		target := w.steering(c).Add(c.Preferred.Scale(headingWeight))
		target = target.Scale(targetSpeed / (target.Len() + normalizeEpsilon))
		c.Velocity = c.Velocity.Scale(1 - elapsed).Add(target.Scale(elapsed))
	}
}

// steering sums the ownership pressure of the chunks inside the view circle.
func (w *World) steering(c *Cell) Vec2 {
	center := w.WorldToChunk(c.Position)
	radius := int(math.Ceil(viewRange))
	cols, rows := w.settings.ChunksX, w.settings.ChunksY

	var sum Vec2
	for ox := -radius; ox <= radius; ox++ {
		for oy := -radius; oy <= radius; oy++ {
			at := ChunkCoord{X: center.X + ox, Y: center.Y + oy}
			if !at.inGrid(cols, rows) {
				continue
			}
			distSq := float64(ox*ox + oy*oy)
			if distSq > viewRange*viewRange {
				continue
			}
			ch := &w.chunks[w.chunkIndex(at)]
			weight := (1 - ch.Ownership[c.Team]) / float64(ch.Count(c.Team)+1)
			sum = sum.Add(Vec2{X: float64(ox), Y: float64(oy)}.Scale(weight / (distSq + 1)))
		}
	}
	return sum
}

// updatePositions integrates velocity and mirrors cells off the world edges.
func (w *World) updatePositions(elapsed float64) {
	hi := w.settings.maxPos()
	for _, id := range w.cells.order {
		c := w.cells.get(id)
		next := c.Position.Add(c.Velocity.Scale(elapsed))

		if next.X < 0 || next.X >= hi.X {
			next.X = clamp(next.X, 0, hi.X)
			c.Velocity.X = -c.Velocity.X
			c.Preferred.X = -c.Preferred.X
		}
		if next.Y < 0 || next.Y >= hi.Y {
			next.Y = clamp(next.Y, 0, hi.Y)
			c.Velocity.Y = -c.Velocity.Y
			c.Preferred.Y = -c.Preferred.Y
		}
		w.moveCell(id, next)
	}
}
