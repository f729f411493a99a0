package telemetry

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

func newHarness(t *testing.T, seed int64) *sim.Harness {
	t.Helper()
	h, err := sim.NewHarness(sim.WithSeed(seed), sim.WithElapsed(0.1))
	if err != nil {
		t.Fatalf("NewHarness: %v", err)
	}
	return h
}

func TestCollect_MatchesWorld(t *testing.T) {
	h := newHarness(t, 3)
	h.RunTicks(10)
	rpt := Collect(h.World)

	if rpt.Tick != 10 || rpt.Cells != h.World.CellCount() {
		t.Fatalf("unexpected header: tick=%d cells=%d", rpt.Tick, rpt.Cells)
	}
	pop := h.Population()
	total := 0
	for i, tr := range rpt.Teams {
		if tr.Alive != pop[i] {
			t.Errorf("team %d: report alive %d, harness %d", i, tr.Alive, pop[i])
		}
		if tr.Territory < 0 || tr.Territory > 1 {
			t.Errorf("team %d territory share %.3f out of range", i, tr.Territory)
		}
		total += tr.OwnedChunks
	}
	s := h.World.Settings()
	if total > s.ChunksX*s.ChunksY {
		t.Fatalf("owned chunks %d exceed the grid", total)
	}
	var supply float64
	for y := 0; y < s.ChunksY; y++ {
		for x := 0; x < s.ChunksX; x++ {
			supply += h.World.Chunk(x, y).Supply
		}
	}
	if math.Abs(supply-rpt.ChunkSupply) > 1e-9 {
		t.Fatalf("chunk supply %.4f, expected %.4f", rpt.ChunkSupply, supply)
	}
}

func TestTickReport_DominantAndSurvivors(t *testing.T) {
	rpt := TickReport{Teams: []TeamReport{
		{Team: 0, Alive: 3, OwnedChunks: 4},
		{Team: 1, Alive: 0, OwnedChunks: 9},
		{Team: 2, Alive: 5, OwnedChunks: 2},
	}}
	if got := rpt.Dominant(); got != 1 {
		t.Fatalf("expected team 1 dominant, got %d", got)
	}
	if got := rpt.Survivors(); got != 2 {
		t.Fatalf("expected 2 survivors, got %d", got)
	}

	rpt.Teams[0].OwnedChunks = 9
	if got := rpt.Dominant(); got != -1 {
		t.Fatalf("tie for first should have no dominant team, got %d", got)
	}
	if got := (TickReport{Teams: make([]TeamReport, 2)}).Dominant(); got != -1 {
		t.Fatalf("empty map should have no dominant team, got %d", got)
	}
}

func TestReporter_WindowSummary(t *testing.T) {
	h := newHarness(t, 5)
	r := NewReporter(30)
	if r.WindowSummary() != nil || r.Latest() != nil {
		t.Fatal("fresh reporter should be empty")
	}
	if !strings.Contains(r.WindowSummary().Format(), "No data") {
		t.Fatal("nil window should format as no data")
	}

	for i := 0; i < 12; i++ {
		h.RunTicks(10)
		r.Collect(h.World)
	}
	if len(r.History()) > 7 {
		t.Fatalf("history should be pruned to two windows, kept %d", len(r.History()))
	}
	wr := r.WindowSummary()
	if wr.ToTick != 120 || wr.FromTick != 90 || wr.SampleCount != 4 {
		t.Fatalf("unexpected window %d..%d (%d samples)", wr.FromTick, wr.ToTick, wr.SampleCount)
	}
	out := wr.Format()
	for _, want := range []string{"T=90..120", "t0: alive=", "t3: alive="} {
		if !strings.Contains(out, want) {
			t.Errorf("window report missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(r.FormatLatest(), "Snapshot T=120") {
		t.Fatalf("latest report:\n%s", r.FormatLatest())
	}
}

func TestTickLog_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ticks")
	runID := NewRunID()
	log, err := NewTickLog(dir, runID)
	if err != nil {
		t.Fatalf("NewTickLog: %v", err)
	}

	h := newHarness(t, 8)
	var want []int
	for i := 0; i < 5; i++ {
		h.RunTicks(3)
		rpt := Collect(h.World)
		rpt.RunID = runID
		want = append(want, rpt.Cells)
		if err := log.Write(rpt); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := log.Write(TickReport{}); err == nil {
		t.Fatal("write after close should fail")
	}

	got, err := ReadTickLog(log.Path())
	if err != nil {
		t.Fatalf("ReadTickLog: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d reports, read %d", len(want), len(got))
	}
	for i, rpt := range got {
		if rpt.RunID != runID || rpt.Cells != want[i] || rpt.Tick != 3*(i+1) {
			t.Fatalf("report %d mismatch: %+v", i, rpt)
		}
	}
}

func TestStatsDB_RecordsTeamHistory(t *testing.T) {
	db, err := OpenStatsDB(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("OpenStatsDB: %v", err)
	}
	defer db.Close()

	h := newHarness(t, 4)
	runID := NewRunID()
	if err := db.BeginRun(runID, 4, h.World.Settings()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	var alive []int
	for i := 0; i < 3; i++ {
		h.RunTicks(5)
		rpt := Collect(h.World)
		alive = append(alive, rpt.Teams[2].Alive)
		if err := db.RecordReport(runID, rpt); err != nil {
			t.Fatalf("RecordReport: %v", err)
		}
	}

	hist, err := db.TeamHistory(runID, 2)
	if err != nil {
		t.Fatalf("TeamHistory: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(hist))
	}
	for i, s := range hist {
		if s.Tick != 5*(i+1) || s.Alive != alive[i] {
			t.Fatalf("sample %d mismatch: %+v", i, s)
		}
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID || runs[0].Seed != 4 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if other, err := db.TeamHistory(NewRunID(), 2); err != nil || len(other) != 0 {
		t.Fatalf("unknown run should have no history, got %v %v", other, err)
	}
}

func TestStatsDB_OpensInWALMode(t *testing.T) {
	db, err := OpenStatsDB(filepath.Join(t.TempDir(), "wal.db"))
	if err != nil {
		t.Fatalf("OpenStatsDB: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.conn.Get(&mode, "PRAGMA journal_mode"); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("expected wal journal mode, got %q", mode)
	}
	var timeout int
	if err := db.conn.Get(&timeout, "PRAGMA busy_timeout"); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("expected busy_timeout 5000, got %d", timeout)
	}
}
