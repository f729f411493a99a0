package sim

import "fmt"

// Harness is a headless runner around a World. It steps with a fixed
// elapsed time and records structured events into a SimLog; tests and the
// headless report drive the simulation through it.
type Harness struct {
	World   *World
	SimLog  *SimLog
	Elapsed float64

	settings Settings
	seed     int64
	workers  int
}

// HarnessOption configures a Harness before its world is built.
type HarnessOption func(*Harness)

// WithSettings replaces the default settings.
func WithSettings(s Settings) HarnessOption {
	return func(h *Harness) { h.settings = s }
}

// WithSeed sets the world seed.
func WithSeed(seed int64) HarnessOption {
	return func(h *Harness) { h.seed = seed }
}

// WithElapsed sets the simulated time advanced per tick.
func WithElapsed(dt float64) HarnessOption {
	return func(h *Harness) { h.Elapsed = dt }
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) HarnessOption {
	return func(h *Harness) { h.SimLog = NewSimLog(v) }
}

// WithWorkers overrides Settings.Workers.
func WithWorkers(n int) HarnessOption {
	return func(h *Harness) { h.workers = n }
}

// NewHarness builds the world from the options.
func NewHarness(opts ...HarnessOption) (*Harness, error) {
	h := &Harness{
		SimLog:   NewSimLog(false),
		Elapsed:  1.0 / 60,
		settings: DefaultSettings(),
		seed:     1,
		workers:  -1,
	}
	for _, o := range opts {
		o(h)
	}
	if h.workers >= 0 {
		h.settings.Workers = h.workers
	}
	w, err := NewWorld(h.settings, h.seed)
	if err != nil {
		return nil, fmt.Errorf("harness world: %w", err)
	}
	h.World = w
	return h, nil
}

// RunTicks advances the simulation n ticks.
func (h *Harness) RunTicks(n int) {
	for i := 0; i < n; i++ {
		h.runOneTick()
	}
}

// RunUntil advances up to maxTicks, stopping early once predicate holds.
// It returns the tick at which the predicate was satisfied, or -1.
func (h *Harness) RunUntil(predicate func(*Harness) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		h.runOneTick()
		if predicate(h) {
			return h.World.Tick()
		}
	}
	return -1
}

// runOneTick steps the world and logs what changed.
func (h *Harness) runOneTick() {
	w := h.World
	teams := w.settings.NumTeams

	prevOwners := make([]int, len(w.chunks))
	for i := range w.chunks {
		prevOwners[i] = w.chunks[i].Owner()
	}
	prevPop := h.Population()

	w.Step(h.Elapsed)
	tick := w.Tick()
	st := w.Stats()

	for i := range w.chunks {
		now := w.chunks[i].Owner()
		if now == prevOwners[i] {
			continue
		}
		at := fmt.Sprintf("(%d,%d)", i%w.settings.ChunksX, i/w.settings.ChunksX)
		h.SimLog.Add(tick, at, teamLabel(now), "territory", "owner_change",
			fmt.Sprintf("%s → %s", teamLabel(prevOwners[i]), teamLabel(now)), float64(now))
	}

	if st.Births > 0 {
		h.SimLog.Add(tick, "--", "--", "life", "birth", fmt.Sprintf("%d born", st.Births), float64(st.Births))
	}
	if st.Starved > 0 {
		h.SimLog.Add(tick, "--", "--", "life", "starved", fmt.Sprintf("%d starved", st.Starved), float64(st.Starved))
	}
	if st.Killed > 0 {
		h.SimLog.Add(tick, "--", "--", "combat", "killed", fmt.Sprintf("%d killed", st.Killed), float64(st.Killed))
	}
	h.SimLog.AddVerbose(tick, "--", "--", "combat", "damage", fmt.Sprintf("%.3f", st.DamageDealt), st.DamageDealt)
	h.SimLog.AddVerbose(tick, "--", "--", "supply", "drawn", fmt.Sprintf("%.3f", st.SupplyDrawn), st.SupplyDrawn)

	pop := h.Population()
	for team := 0; team < teams; team++ {
		if pop[team] == 0 && prevPop[team] > 0 {
			h.SimLog.Add(tick, "T"+fmt.Sprint(team), teamLabel(team), "team", "eliminated",
				fmt.Sprintf("%d → 0", prevPop[team]), 0)
		}
		h.SimLog.AddVerbose(tick, "T"+fmt.Sprint(team), teamLabel(team), "team", "population",
			fmt.Sprint(pop[team]), float64(pop[team]))
	}
}

// Population returns live cells per team.
func (h *Harness) Population() []int {
	pop := make([]int, h.World.settings.NumTeams)
	h.World.EachCell(func(_ CellID, c *Cell) { pop[c.Team]++ })
	return pop
}
