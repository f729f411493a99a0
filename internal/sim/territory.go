package sim

import "image/color"

const (
	claimSpeed     = 1.0 // ownership change per unit time
	territoryAlpha = 127
)

// updateTerritories moves every chunk's ownership toward the local
// population split. Chunks with nobody in them keep their claims.
func (w *World) updateTerritories(elapsed float64) {
	numTeams := w.settings.NumTeams
	w.pool.ForRange(len(w.chunks), func(lo, hi int) {
		counts := make([]int, numTeams)
		for i := lo; i < hi; i++ {
			ch := &w.chunks[i]
			total := 0
			for team := 0; team < numTeams; team++ {
				counts[team] = ch.Count(team)
				total += counts[team]
			}
			if total == 0 {
				continue
			}
			for team := 0; team < numTeams; team++ {
				target := float64(counts[team]) / float64(total)
				ch.Ownership[team] = approach(ch.Ownership[team], target, elapsed*claimSpeed)
			}
			w.paintTerritory(i)
		}
	})
}

// approach moves v toward target by at most step without overshooting.
func approach(v, target, step float64) float64 {
	if v > target {
		return clamp(v-step, target, 1)
	}
	return clamp(v+step, 0, target)
}

// paintTerritory writes chunk i's ownership-blended colour into the overlay.
func (w *World) paintTerritory(i int) {
	ch := &w.chunks[i]
	var r, g, b float64
	for team, own := range ch.Ownership {
		tc := w.settings.TeamColors[team]
		r += float64(tc.R) * own
		g += float64(tc.G) * own
		b += float64(tc.B) * own
	}
	x, y := i%w.settings.ChunksX, i/w.settings.ChunksX
	w.territory.SetNRGBA(x, y, color.NRGBA{R: channel(r), G: channel(g), B: channel(b), A: territoryAlpha})
}

// channel saturates a colour component into a byte.
func channel(v float64) uint8 {
	return uint8(clamp(v, 0, 255))
}
