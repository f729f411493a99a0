// Package telemetry samples the simulation and records the samples to
// compressed tick logs and a SQLite run index.
package telemetry

import (
	"fmt"
	"strings"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

// defaultWindowTicks is the sliding window for recent-behaviour reports (~10s at 60TPS).
const defaultWindowTicks = 600

// --- Snapshot types ---

// TeamReport captures one team's state at one point in time.
type TeamReport struct {
	Team        int     `json:"team"`
	Alive       int     `json:"alive"`
	AvgHealth   float64 `json:"avg_health"`
	AvgSupply   float64 `json:"avg_supply"`
	AvgStrength float64 `json:"avg_strength"`
	Territory   float64 `json:"territory"` // mean ownership over all chunks, 0..1
	OwnedChunks int     `json:"owned_chunks"`
}

// TickReport is a full sample of the simulation at one tick.
type TickReport struct {
	RunID       string        `json:"run_id,omitempty"`
	Tick        int           `json:"tick"`
	Clock       float64       `json:"clock"`
	Cells       int           `json:"cells"`
	Teams       []TeamReport  `json:"teams"`
	ChunkSupply float64       `json:"chunk_supply"` // summed over every chunk
	Stats       sim.TickStats `json:"stats"`
}

// Collect samples w without keeping it.
func Collect(w *sim.World) TickReport {
	s := w.Settings()
	rpt := TickReport{
		Tick:  w.Tick(),
		Clock: w.Clock(),
		Cells: w.CellCount(),
		Teams: make([]TeamReport, s.NumTeams),
		Stats: w.Stats(),
	}
	for team := range rpt.Teams {
		rpt.Teams[team].Team = team
	}

	w.EachCell(func(_ sim.CellID, c *sim.Cell) {
		tr := &rpt.Teams[c.Team]
		tr.Alive++
		tr.AvgHealth += c.Health
		tr.AvgSupply += c.Supply
		tr.AvgStrength += c.Strength
	})

	chunks := s.ChunksX * s.ChunksY
	for y := 0; y < s.ChunksY; y++ {
		for x := 0; x < s.ChunksX; x++ {
			ch := w.Chunk(x, y)
			rpt.ChunkSupply += ch.Supply
			for team, v := range ch.Ownership {
				rpt.Teams[team].Territory += v
			}
			if o := ch.Owner(); o >= 0 {
				rpt.Teams[o].OwnedChunks++
			}
		}
	}

	for i := range rpt.Teams {
		tr := &rpt.Teams[i]
		if tr.Alive > 0 {
			n := float64(tr.Alive)
			tr.AvgHealth /= n
			tr.AvgSupply /= n
			tr.AvgStrength /= n
		}
		if chunks > 0 {
			tr.Territory /= float64(chunks)
		}
	}
	return rpt
}

// Dominant returns the team holding the most chunks, or -1 on a tie for
// first place or when nobody holds anything.
func (r TickReport) Dominant() int {
	best, owner := 0, -1
	for _, tr := range r.Teams {
		switch {
		case tr.OwnedChunks > best:
			best, owner = tr.OwnedChunks, tr.Team
		case tr.OwnedChunks == best && best > 0:
			owner = -1
		}
	}
	return owner
}

// Survivors returns how many teams still have live cells.
func (r TickReport) Survivors() int {
	n := 0
	for _, tr := range r.Teams {
		if tr.Alive > 0 {
			n++
		}
	}
	return n
}

// --- Reporter ---

// Reporter collects periodic reports and summarises them over a sliding
// window of ticks.
type Reporter struct {
	history     []TickReport
	windowTicks int
}

// NewReporter creates a reporter with the given window size.
func NewReporter(windowTicks int) *Reporter {
	if windowTicks <= 0 {
		windowTicks = defaultWindowTicks
	}
	return &Reporter{windowTicks: windowTicks}
}

// Collect samples the world and appends the report to the history.
// Call this periodically (e.g. every 60 ticks).
func (r *Reporter) Collect(w *sim.World) TickReport {
	rpt := Collect(w)
	r.history = append(r.history, rpt)

	// Prune history beyond two windows.
	if len(r.history) > 1 {
		cutoff := rpt.Tick - 2*r.windowTicks
		drop := 0
		for drop < len(r.history)-1 && r.history[drop].Tick < cutoff {
			drop++
		}
		r.history = r.history[drop:]
	}
	return rpt
}

// Latest returns the most recent report, or nil if none collected yet.
func (r *Reporter) Latest() *TickReport {
	if len(r.history) == 0 {
		return nil
	}
	return &r.history[len(r.history)-1]
}

// History returns the retained reports, oldest first.
func (r *Reporter) History() []TickReport {
	return r.history
}

// WindowReport aggregates the reports inside the window.
type WindowReport struct {
	FromTick, ToTick int
	SampleCount      int

	AvgAlive     []float64
	AvgTerritory []float64
	AvgOwned     []float64

	// Cumulative over the sampled ticks only.
	Births, Starved, Killed int
}

// WindowSummary averages the reports from the last windowTicks.
func (r *Reporter) WindowSummary() *WindowReport {
	if len(r.history) == 0 {
		return nil
	}
	latest := r.history[len(r.history)-1]
	cutoff := latest.Tick - r.windowTicks
	var window []TickReport
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].Tick < cutoff {
			break
		}
		window = append(window, r.history[i])
	}

	teams := len(latest.Teams)
	wr := &WindowReport{
		FromTick:     window[len(window)-1].Tick,
		ToTick:       window[0].Tick,
		SampleCount:  len(window),
		AvgAlive:     make([]float64, teams),
		AvgTerritory: make([]float64, teams),
		AvgOwned:     make([]float64, teams),
	}
	for _, rpt := range window {
		for i, tr := range rpt.Teams {
			wr.AvgAlive[i] += float64(tr.Alive)
			wr.AvgTerritory[i] += tr.Territory
			wr.AvgOwned[i] += float64(tr.OwnedChunks)
		}
		wr.Births += rpt.Stats.Births
		wr.Starved += rpt.Stats.Starved
		wr.Killed += rpt.Stats.Killed
	}
	n := float64(len(window))
	for i := 0; i < teams; i++ {
		wr.AvgAlive[i] /= n
		wr.AvgTerritory[i] /= n
		wr.AvgOwned[i] /= n
	}
	return wr
}

// Format returns a human-readable multi-line string of the window summary.
func (wr *WindowReport) Format() string {
	if wr == nil {
		return "No data collected yet.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Territory Report (T=%d..%d, %d samples) ===\n",
		wr.FromTick, wr.ToTick, wr.SampleCount)
	for i := range wr.AvgAlive {
		fmt.Fprintf(&sb, "  t%d: alive=%.0f  territory=%5.1f%%  chunks=%.0f\n",
			i, wr.AvgAlive[i], wr.AvgTerritory[i]*100, wr.AvgOwned[i])
	}
	fmt.Fprintf(&sb, "  sampled events: births=%d starved=%d killed=%d\n",
		wr.Births, wr.Starved, wr.Killed)
	return sb.String()
}

// FormatLatest returns a concise snapshot of the most recent report.
func (r *Reporter) FormatLatest() string {
	rpt := r.Latest()
	if rpt == nil {
		return "No data.\n"
	}
	return FormatReport(*rpt)
}

// FormatReport renders one report.
func FormatReport(rpt TickReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Snapshot T=%d (t=%.1f) cells=%d supply=%.1f ---\n",
		rpt.Tick, rpt.Clock, rpt.Cells, rpt.ChunkSupply)
	for _, tr := range rpt.Teams {
		fmt.Fprintf(&sb, "t%d: alive=%d health=%.2f supply=%.2f strength=%.2f territory=%.1f%% chunks=%d\n",
			tr.Team, tr.Alive, tr.AvgHealth, tr.AvgSupply, tr.AvgStrength, tr.Territory*100, tr.OwnedChunks)
	}
	return sb.String()
}
