package sim

import "math"

const (
	verticalDiffusion = 0.1 // weight of the y-axis second difference
	passiveSupplyLoss = 0.2 // per unit time
	transferDamping   = 0.3
)

// updateChunkSupply diffuses supply inside each territory and applies
// generation or decay. Owners are snapshotted first and every transfer is
// computed before any is applied, so no chunk reads a value updated this pass.
func (w *World) updateChunkSupply(elapsed float64) {
	n := len(w.chunks)
	owners := w.fields.owners
	transfer := w.fields.transfer

	w.pool.ForRange(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			owners[i] = w.chunks[i].Owner()
		}
	})

	for i, o := range owners {
		if o != w.fields.prevOwners[i] {
			w.stats.OwnerFlips++
			w.fields.prevOwners[i] = o
		}
	}

	w.pool.ForRange(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			transfer[i] = w.supplyTransfer(i, elapsed)
		}
	})

	w.pool.ForRange(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			w.chunks[i].Supply += transfer[i] * elapsed
		}
	})
}

// supplyTransfer is the rate of change of chunk i's supply. A neighbour with
// a different owner (or off the grid) mirrors the centre value, so no supply
// flows across a territory border.
func (w *World) supplyTransfer(i int, elapsed float64) float64 {
	owners := w.fields.owners
	owner := owners[i]
	if owner == -1 {
		return -elapsed
	}

	cols, rows := w.settings.ChunksX, w.settings.ChunksY
	x, y := i%cols, i/cols
	cur := w.chunks[i].Supply
	east, west, south, north := cur, cur, cur, cur

	if x+1 < cols && owners[i+1] == owner {
		east = w.chunks[i+1].Supply
	}
	if x-1 >= 0 && owners[i-1] == owner {
		west = w.chunks[i-1].Supply
	}
	if y+1 < rows && owners[i+cols] == owner {
		south = w.chunks[i+cols].Supply
	}
	if y-1 >= 0 && owners[i-cols] == owner {
		north = w.chunks[i-cols].Supply
	}

	dx2 := (east - cur) - (cur - west)
	dy2 := (south - cur) - (cur - north)
	return dx2 + dy2*verticalDiffusion + w.chunks[i].Generation
}

// updateCellSupply lets cells standing on their own team's land draw supply,
// charges everyone the passive loss and turns any deficit into damage.
func (w *World) updateCellSupply(elapsed float64) {
	for _, id := range w.cells.order {
		c := w.cells.get(id)
		ch := w.ChunkAt(c.Position)
		if ch.Owner() != c.Team {
			continue
		}
		maxTransfer := elapsed / (transferDamping*c.Supply + 1)
		t := math.Min(math.Min(maxTransfer, ch.Supply), supplySoftCap-c.Supply)
		if t < 0 {
			t = 0
		}
		c.Supply += t
		ch.Supply -= t
		w.stats.SupplyDrawn += t

		c.Supply -= passiveSupplyLoss * elapsed
		if c.Supply < 0 {
			c.Health += c.Supply
		}
	}

	w.stats.Starved += w.purgeDead()
}
