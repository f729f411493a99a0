package sim

import (
	"fmt"
	"strings"
)

// SimLogEntry is one recorded event during a headless simulation.
type SimLogEntry struct {
	Tick     int
	Subject  string  // "T0", "(3,4)" or "--" for global events
	Team     string  // "t0", "t1", ... or "--"
	Category string  // territory, life, combat, supply, team
	Key      string  // specific event name within the category
	Value    string  // human-readable detail
	NumVal   float64 // optional numeric value for threshold checks
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] (3,4)  territory owner_change   t0 → t1
func (e SimLogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-6s %-9s %-16s %s",
		e.Tick, e.Subject, e.Category, e.Key, e.Value)
}

// SimLog collects structured events during a headless simulation. It is
// unbounded and machine-readable.
type SimLog struct {
	entries []SimLogEntry
	verbose bool
}

// NewSimLog creates a SimLog. If verbose is true, per-tick population and
// supply entries are also recorded.
func NewSimLog(verbose bool) *SimLog {
	return &SimLog{verbose: verbose}
}

// Add records a new entry.
func (sl *SimLog) Add(tick int, subject, team, category, key, value string, numVal float64) {
	sl.entries = append(sl.entries, SimLogEntry{
		Tick:     tick,
		Subject:  subject,
		Team:     team,
		Category: category,
		Key:      key,
		Value:    value,
		NumVal:   numVal,
	})
}

// AddVerbose records an entry only when verbose mode is on.
func (sl *SimLog) AddVerbose(tick int, subject, team, category, key, value string, numVal float64) {
	if !sl.verbose {
		return
	}
	sl.Add(tick, subject, team, category, key, value, numVal)
}

// Entries returns all recorded entries.
func (sl *SimLog) Entries() []SimLogEntry {
	return sl.entries
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (sl *SimLog) Filter(category, key string) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick] inclusive.
func (sl *SimLog) FilterTickRange(fromTick, toTick int) []SimLogEntry {
	var out []SimLogEntry
	for _, e := range sl.entries {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (sl *SimLog) CountCategory(category, key string) int {
	return len(sl.Filter(category, key))
}

// SumCategory adds up NumVal over entries matching category and key.
func (sl *SimLog) SumCategory(category, key string) float64 {
	var sum float64
	for _, e := range sl.Filter(category, key) {
		sum += e.NumVal
	}
	return sum
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (sl *SimLog) LastOf(category, key string) (SimLogEntry, bool) {
	entries := sl.Filter(category, key)
	if len(entries) == 0 {
		return SimLogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (sl *SimLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range sl.entries {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (sl *SimLog) Format() string {
	var sb strings.Builder
	for _, e := range sl.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary returns a short human-readable summary of the world.
func (sl *SimLog) Summary(w *World) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- Summary at T=%03d (t=%.1f) ---\n", w.Tick(), w.Clock())

	teams := w.Settings().NumTeams
	alive := make([]int, teams)
	health := make([]float64, teams)
	w.EachCell(func(_ CellID, c *Cell) {
		alive[c.Team]++
		health[c.Team] += c.Health
	})
	owned := make([]int, teams)
	for i := range w.chunks {
		if o := w.chunks[i].Owner(); o >= 0 {
			owned[o]++
		}
	}
	for team := 0; team < teams; team++ {
		avg := 0.0
		if alive[team] > 0 {
			avg = health[team] / float64(alive[team])
		}
		fmt.Fprintf(&sb, "%s alive=%d  avg_health=%.2f  chunks=%d\n",
			teamLabel(team), alive[team], avg, owned[team])
	}
	fmt.Fprintf(&sb, "Events: owner_changes=%d births=%.0f starved=%.0f killed=%.0f\n",
		sl.CountCategory("territory", "owner_change"),
		sl.SumCategory("life", "birth"),
		sl.SumCategory("life", "starved"),
		sl.SumCategory("combat", "killed"))
	return sb.String()
}

// teamLabel returns a short string for a team, "--" for none.
func teamLabel(team int) string {
	if team < 0 {
		return "--"
	}
	return fmt.Sprintf("t%d", team)
}
