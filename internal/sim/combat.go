package sim

import "math"

// attackNearby lets every cell hit the nearest hostile in range once. Damage
// is one-directional; the defender answers only on its own turn.
func (w *World) attackNearby(elapsed float64) {
	for _, id := range w.cells.order {
		enemy, ok := w.nearest(id, w.settings.AttackRange, false)
		if !ok {
			continue
		}
		attacker := w.cells.get(id)
		defender := w.cells.get(enemy)

		dmg := elapsed * (attacker.Strength / defender.Strength)
		defender.Health -= dmg
		if defender.Health < 0 {
			defender.Health = 0
		}
		w.stats.DamageDealt += dmg
	}

	w.stats.Killed += w.purgeDead()
}

// NearestEnemy returns the closest cell of another team strictly within maxDist.
func (w *World) NearestEnemy(id CellID, maxDist float64) (CellID, bool) {
	if !w.cells.contains(id) {
		return 0, false
	}
	return w.nearest(id, maxDist, false)
}

// NearestFriendly returns the closest other cell of the same team strictly within maxDist.
func (w *World) NearestFriendly(id CellID, maxDist float64) (CellID, bool) {
	if !w.cells.contains(id) {
		return 0, false
	}
	return w.nearest(id, maxDist, true)
}

// nearest scans the chunk square covering maxDist. Only a strictly closer
// candidate replaces the best, so scan order settles ties.
func (w *World) nearest(id CellID, maxDist float64, friendly bool) (CellID, bool) {
	self := w.cells.get(id)
	search := int(math.Ceil(maxDist / float64(w.settings.ChunkSize)))
	center := w.WorldToChunk(self.Position)
	cols, rows := w.settings.ChunksX, w.settings.ChunksY

	var best CellID
	found := false
	bestDist := maxDist

	for ox := -search; ox <= search; ox++ {
		for oy := -search; oy <= search; oy++ {
			at := ChunkCoord{X: center.X + ox, Y: center.Y + oy}
			if !at.inGrid(cols, rows) {
				continue
			}
			ch := &w.chunks[w.chunkIndex(at)]
			for team := 0; team < w.settings.NumTeams; team++ {
				if (team == self.Team) != friendly {
					continue
				}
				for _, other := range ch.buckets[team] {
					if other == id {
						continue
					}
					d := w.cells.get(other).Position.Sub(self.Position).Len()
					if d < bestDist {
						best, bestDist, found = other, d, true
					}
				}
			}
		}
	}
	return best, found
}
