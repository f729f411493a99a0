package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/Garsondee/Territory-Sense/internal/config"
	"github.com/Garsondee/Territory-Sense/internal/sim"
	"github.com/Garsondee/Territory-Sense/internal/telemetry"
)

// stalemateFlipLimit is the most owner changes the closing quarter of a run
// may see while still counting as frozen borders.
const stalemateFlipLimit = 2

type runStats struct {
	runIndex int
	seed     int64
	runID    string
	ticks    int // ticks actually run

	final telemetry.TickReport

	firstDeathTick       int
	firstEliminationTick int
	eliminated           map[string]struct{}

	births       int
	starved      int
	killed       int
	ownerChanges int

	lateOwnerChanges int
	lateKills        int

	peakTerritory []float64
	windowSummary *telemetry.WindowReport
	logPath       string
}

// sinks are the optional per-run outputs shared by every run.
type sinks struct {
	logDir string
	db     *telemetry.StatsDB
}

func main() {
	var cfgPath string
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var logDir string
	var dbPath string

	flag.StringVar(&cfgPath, "config", "", "YAML settings file (defaults when empty)")
	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 3600, "ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&logDir, "telemetry", "", "directory for compressed tick logs (overrides config)")
	flag.StringVar(&dbPath, "db", "", "SQLite run index path (overrides config)")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(cfgPath, runs, ticks, seedBase, seedStep, logDir, dbPath); err != nil {
		logger.Error("headless report", "err", err)
		os.Exit(1)
	}
}

// run executes every seed and prints the report. Sinks are closed before it
// returns so their errors reach the caller.
func run(cfgPath string, runs, ticks int, seedBase, seedStep int64, logDir, dbPath string) (err error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if logDir != "" {
		cfg.Telemetry.Dir = logDir
	}
	if dbPath != "" {
		cfg.Telemetry.DB = dbPath
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	out := sinks{logDir: cfg.Telemetry.Dir}
	if cfg.Telemetry.DB != "" {
		out.db, err = telemetry.OpenStatsDB(cfg.Telemetry.DB)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := out.db.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close stats db: %w", cerr)
			}
		}()
	}

	fmt.Printf("=== Headless Territory Report ===\n")
	fmt.Printf("teams=%d world=%dx%d chunk=%d runs=%d ticks=%d seed_base=%d seed_step=%d workers=%d\n\n",
		settings.NumTeams, settings.Width, settings.Height, settings.ChunkSize,
		runs, ticks, seedBase, seedStep, settings.Workers)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		rs, err := runSeed(i+1, seed, ticks, settings, cfg, out)
		if err != nil {
			return fmt.Errorf("run %d (seed %d): %w", i+1, seed, err)
		}
		all = append(all, rs)
		printRun(rs)
	}

	printAggregate(all, settings.NumTeams)
	return nil
}

// runSeed runs one seed to completion, or until at most one team is left.
func runSeed(runIndex int, seed int64, ticks int, settings sim.Settings, cfg config.File, out sinks) (rs runStats, err error) {
	h, err := sim.NewHarness(
		sim.WithSettings(settings),
		sim.WithSeed(seed),
		sim.WithElapsed(cfg.Elapsed),
	)
	if err != nil {
		return runStats{}, err
	}

	rs = runStats{
		runIndex:      runIndex,
		seed:          seed,
		runID:         telemetry.NewRunID(),
		peakTerritory: make([]float64, settings.NumTeams),
	}

	var tickLog *telemetry.TickLog
	if out.logDir != "" {
		tickLog, err = telemetry.NewTickLog(out.logDir, rs.runID)
		if err != nil {
			return rs, err
		}
		defer func() {
			if cerr := tickLog.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close tick log: %w", cerr)
			}
		}()
		rs.logPath = tickLog.Path()
	}
	if out.db != nil {
		if err := out.db.BeginRun(rs.runID, seed, h.World.Settings()); err != nil {
			return rs, err
		}
	}

	reportEvery := max(cfg.Telemetry.ReportEvery, 1)
	reporter := telemetry.NewReporter(cfg.Telemetry.Window)
	record := func() error {
		rpt := reporter.Collect(h.World)
		rpt.RunID = rs.runID
		for _, tr := range rpt.Teams {
			rs.peakTerritory[tr.Team] = max(rs.peakTerritory[tr.Team], tr.Territory)
		}
		if tickLog != nil {
			if err := tickLog.Write(rpt); err != nil {
				return fmt.Errorf("tick log: %w", err)
			}
		}
		if out.db != nil {
			if err := out.db.RecordReport(rs.runID, rpt); err != nil {
				return err
			}
		}
		return nil
	}

	if err := record(); err != nil {
		return rs, err
	}
	for i := 0; i < ticks; i++ {
		h.RunTicks(1)
		tick := h.World.Tick()
		if tick%reportEvery == 0 {
			if err := record(); err != nil {
				return rs, err
			}
		}
		if survivingTeams(h.Population()) <= 1 {
			break
		}
	}

	rs.ticks = h.World.Tick()
	rs.final = telemetry.Collect(h.World)
	rs.final.RunID = rs.runID
	rs.windowSummary = reporter.WindowSummary()
	summariseLog(&rs, h.SimLog)
	return rs, nil
}

// summariseLog fills the event counters of rs from the run's SimLog.
func summariseLog(rs *runStats, log *sim.SimLog) {
	entries := log.Entries()
	rs.firstDeathTick = firstTick(entries, "life", "starved")
	if k := firstTick(entries, "combat", "killed"); k >= 0 && (rs.firstDeathTick < 0 || k < rs.firstDeathTick) {
		rs.firstDeathTick = k
	}
	rs.firstEliminationTick = firstTick(entries, "team", "eliminated")

	rs.eliminated = map[string]struct{}{}
	for _, e := range log.Filter("team", "eliminated") {
		rs.eliminated[e.Team] = struct{}{}
	}

	rs.births = int(log.SumCategory("life", "birth"))
	rs.starved = int(log.SumCategory("life", "starved"))
	rs.killed = int(log.SumCategory("combat", "killed"))
	rs.ownerChanges = log.CountCategory("territory", "owner_change")

	lateFrom := rs.ticks - rs.ticks/4
	for _, e := range log.FilterTickRange(lateFrom, rs.ticks) {
		switch {
		case e.Category == "territory" && e.Key == "owner_change":
			rs.lateOwnerChanges++
		case e.Category == "combat" && e.Key == "killed":
			rs.lateKills += int(e.NumVal)
		}
	}
}

func survivingTeams(pop []int) int {
	n := 0
	for _, p := range pop {
		if p > 0 {
			n++
		}
	}
	return n
}

// firstTick returns the tick of the first entry with category and key, or -1.
func firstTick(entries []sim.SimLogEntry, category, key string) int {
	for _, e := range entries {
		if e.Category == category && e.Key == key {
			return e.Tick
		}
	}
	return -1
}

// detectStalemate reports whether several teams survived a run whose
// borders stopped moving and whose fighting died down near the end.
func detectStalemate(rs runStats) (bool, string) {
	survivors := rs.final.Survivors()
	if survivors <= 1 {
		if winner := rs.final.Dominant(); winner >= 0 && survivors == 1 {
			return false, fmt.Sprintf("decisive:t%d", winner)
		}
		return false, "extinction"
	}

	var reasons []string
	frozen := rs.lateOwnerChanges <= stalemateFlipLimit
	if frozen {
		reasons = append(reasons, "frozen_borders")
	} else {
		reasons = append(reasons, fmt.Sprintf("late_owner_changes=%d", rs.lateOwnerChanges))
	}
	quiet := rs.lateKills == 0
	if quiet {
		reasons = append(reasons, "no_late_kills")
	} else {
		reasons = append(reasons, fmt.Sprintf("late_kills=%d", rs.lateKills))
	}
	reasons = append(reasons, fmt.Sprintf("survivors=%d", survivors))
	return frozen && quiet, strings.Join(reasons, ",")
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d id=%s) ---\n", rs.runIndex, rs.seed, rs.runID)
	fmt.Printf("phase_markers: first_death=%d first_elimination=%d ended_at=%d\n",
		rs.firstDeathTick, rs.firstEliminationTick, rs.ticks)
	fmt.Printf("event_totals: births=%d starved=%d killed=%d owner_changes=%d\n",
		rs.births, rs.starved, rs.killed, rs.ownerChanges)
	fmt.Printf("eliminated: %s\n", joinSet(rs.eliminated))
	fmt.Print(telemetry.FormatReport(rs.final))
	for team, p := range rs.peakTerritory {
		fmt.Printf("t%d: peak_territory=%.1f%%\n", team, p*100)
	}
	if rs.windowSummary != nil {
		fmt.Printf("window_samples=%d window_tick_range=%d..%d\n",
			rs.windowSummary.SampleCount, rs.windowSummary.FromTick, rs.windowSummary.ToTick)
	}
	stalemate, reason := detectStalemate(rs)
	fmt.Printf("dominant=%s stalemate=%v (%s)\n", dominantLabel(rs.final.Dominant()), stalemate, reason)
	if rs.logPath != "" {
		fmt.Printf("tick_log=%s\n", rs.logPath)
	}
	fmt.Println()
}

func printAggregate(all []runStats, teams int) {
	totalBirths := 0
	totalStarved := 0
	totalKilled := 0
	totalOwner := 0
	totalSurvivors := 0
	stalemates := 0

	deathTicks := make([]int, 0, len(all))
	elimTicks := make([]int, 0, len(all))
	wins := make([]int, teams)
	ties := 0
	territory := make([]float64, teams)
	survived := make([]int, teams)

	for _, rs := range all {
		totalBirths += rs.births
		totalStarved += rs.starved
		totalKilled += rs.killed
		totalOwner += rs.ownerChanges
		totalSurvivors += rs.final.Survivors()
		if rs.firstDeathTick >= 0 {
			deathTicks = append(deathTicks, rs.firstDeathTick)
		}
		if rs.firstEliminationTick >= 0 {
			elimTicks = append(elimTicks, rs.firstEliminationTick)
		}
		if d := rs.final.Dominant(); d >= 0 {
			wins[d]++
		} else {
			ties++
		}
		for _, tr := range rs.final.Teams {
			territory[tr.Team] += tr.Territory
			if tr.Alive > 0 {
				survived[tr.Team]++
			}
		}
		if ok, _ := detectStalemate(rs); ok {
			stalemates++
		}
	}

	n := len(all)
	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d stalemates=%d no_dominant=%d avg_surviving_teams=%.2f\n",
		n, stalemates, ties, avg(totalSurvivors, n))
	fmt.Printf("avg_events_per_run: births=%.1f starved=%.1f killed=%.1f owner_changes=%.1f\n",
		avg(totalBirths, n), avg(totalStarved, n), avg(totalKilled, n), avg(totalOwner, n))
	fmt.Printf("phase_marker_avg_ticks: first_death=%s first_elimination=%s\n",
		avgTickString(deathTicks), avgTickString(elimTicks))

	fmt.Println("\n--- Team Summary (across all runs) ---")
	type teamRow struct {
		team      int
		wins      int
		survRate  float64
		territory float64
	}
	rows := make([]teamRow, teams)
	for t := range rows {
		rows[t] = teamRow{t, wins[t], float64(survived[t]) / float64(max(n, 1)) * 100, territory[t] / float64(max(n, 1))}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].wins != rows[j].wins {
			return rows[i].wins > rows[j].wins
		}
		return rows[i].territory > rows[j].territory
	})
	for _, r := range rows {
		fmt.Printf("  t%d  wins=%d  survival=%.0f%%  avg_territory=%.1f%%\n",
			r.team, r.wins, r.survRate, r.territory*100)
	}
}

func dominantLabel(team int) string {
	if team < 0 {
		return "none"
	}
	return fmt.Sprintf("t%d", team)
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinSet(s map[string]struct{}) string {
	if len(s) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}
