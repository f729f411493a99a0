package game

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

func TestEventLogWrapsOldestFirst(t *testing.T) {
	el := NewEventLog()
	for i := 0; i < logMaxEntries+5; i++ {
		el.Add(i, i%4, fmt.Sprintf("e%d", i))
	}
	got := el.Recent()
	if len(got) != logMaxEntries {
		t.Fatalf("expected %d entries, got %d", logMaxEntries, len(got))
	}
	if got[0].Tick != 5 {
		t.Fatalf("oldest entry should be tick 5, got %d", got[0].Tick)
	}
	if last := got[len(got)-1]; last.Tick != logMaxEntries+4 || last.Message != fmt.Sprintf("e%d", logMaxEntries+4) {
		t.Fatalf("unexpected newest entry %+v", last)
	}
}

func TestEventLogPartial(t *testing.T) {
	el := NewEventLog()
	el.Add(3, -1, "a")
	el.Add(9, 1, "b")
	got := el.Recent()
	if len(got) != 2 || got[0].Message != "a" || got[1].Team != 1 {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestCellColorAlphaFollowsHealth(t *testing.T) {
	team := color.RGBA{R: 220, G: 50, B: 50, A: 255}
	cases := []struct {
		health float64
		alpha  uint8
	}{
		{-1, 150},
		{0, 150},
		{0.5, 202},
		{1, 255},
		{3, 255},
	}
	for _, tc := range cases {
		c := cellColor(team, tc.health)
		if c.A != tc.alpha {
			t.Errorf("health %.1f: alpha %d, want %d", tc.health, c.A, tc.alpha)
		}
		if c.R != 220 || c.G != 50 || c.B != 50 {
			t.Errorf("health %.1f: hue changed to %+v", tc.health, c)
		}
		// Premultiplied channels never exceed alpha.
		if r, _, _, a := c.RGBA(); r > a {
			t.Errorf("health %.1f: premultiplied red %d above alpha %d", tc.health, r, a)
		}
	}
}

func TestSupplyColorClamped(t *testing.T) {
	cases := []struct {
		supply float64
		grey   uint8
	}{
		{-4, 0},
		{0, 0},
		{2, 20},
		{25.5, 255},
		{100, 255},
	}
	for _, tc := range cases {
		c := supplyColor(tc.supply)
		if c.R != tc.grey || c.G != tc.grey || c.B != tc.grey || c.A != overlayAlpha {
			t.Errorf("supply %.1f: got %+v, want grey %d", tc.supply, c, tc.grey)
		}
	}
}

func TestPremultiply(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 0, A: 127})
	src.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	dst := make([]byte, len(src.Pix))
	premultiply(src, dst)

	want := []byte{99, 49, 0, 127, 0, 0, 0, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("byte %d: got %d, want %d (all %v)", i, dst[i], want[i], dst)
		}
	}
}

func TestGroundTextureDeterministic(t *testing.T) {
	a := groundTexture(40, 30, 5)
	b := groundTexture(40, 30, 5)
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel byte %d differs between identical seeds", i)
		}
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			c := a.NRGBAAt(x, y)
			if c.A != 255 || c.R < groundBase.R || c.R > groundBase.R+groundSpread.R {
				t.Fatalf("pixel (%d,%d) out of range: %+v", x, y, c)
			}
		}
	}
}

func TestFillSupplyOverlay(t *testing.T) {
	s := sim.DefaultSettings()
	s.Width, s.Height = 64, 32
	s.NumTeams = 2
	s.TeamColors = s.TeamColors[:2]
	s.TeamSpawns = []sim.Vec2{{X: 16, Y: 16}, {X: 48, Y: 16}}
	s.SpawnRadius = 8
	s.InitialCellsPerTeam = 4
	w, err := sim.NewWorld(s, 3)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	ws := w.Settings()
	dst := image.NewNRGBA(image.Rect(0, 0, ws.ChunksX, ws.ChunksY))
	fillSupplyOverlay(w, dst)
	for y := 0; y < ws.ChunksY; y++ {
		for x := 0; x < ws.ChunksX; x++ {
			if got, want := dst.NRGBAAt(x, y), supplyColor(w.Chunk(x, y).Supply); got != want {
				t.Fatalf("chunk (%d,%d): got %+v, want %+v", x, y, got, want)
			}
		}
	}
}

func TestViewModeCycles(t *testing.T) {
	m := ViewTerritory
	if m = m.Next(); m != ViewSupply || m.String() != "supply" {
		t.Fatalf("expected supply, got %v", m)
	}
	if m = m.Next(); m != ViewTerritory {
		t.Fatalf("expected wrap to territory, got %v", m)
	}
}

func TestSpeedSteps(t *testing.T) {
	if got := fasterSpeed(1); got != 2 {
		t.Errorf("fasterSpeed(1) = %v", got)
	}
	if got := fasterSpeed(8); got != 8 {
		t.Errorf("fasterSpeed(8) = %v, want it pinned", got)
	}
	if got := slowerSpeed(1); got != 0.5 {
		t.Errorf("slowerSpeed(1) = %v", got)
	}
	if got := slowerSpeed(0); got != 0 {
		t.Errorf("slowerSpeed(0) = %v", got)
	}
	if got := slowerSpeed(3); got != 1 {
		t.Errorf("slowerSpeed(3) = %v, want the next step below", got)
	}
	if speedLabel(0) != "PAUSED" || speedLabel(4) != "4x" || speedLabel(0.25) != "0.25x" {
		t.Errorf("labels: %q %q %q", speedLabel(0), speedLabel(4), speedLabel(0.25))
	}
}

func TestClampCamera(t *testing.T) {
	x, y, z := clampCamera(-50, 900, 0.2, 1280, 720)
	if z != zoomMin || x != 640 || y != 360 {
		t.Fatalf("zoomed-out camera should centre: got %v,%v,%v", x, y, z)
	}
	x, y, z = clampCamera(0, 0, 20, 1280, 720)
	if z != zoomMax {
		t.Fatalf("zoom not capped: %v", z)
	}
	if math.Abs(x-1280.0/2/zoomMax) > 1e-9 || math.Abs(y-720.0/2/zoomMax) > 1e-9 {
		t.Fatalf("camera left the world: %v,%v", x, y)
	}
}

func TestNearestCellPicksClosestWithinRadius(t *testing.T) {
	s := sim.DefaultSettings()
	s.Width, s.Height = 64, 64
	s.NumTeams = 1
	s.TeamColors = s.TeamColors[:1]
	s.TeamSpawns = []sim.Vec2{{X: 32, Y: 32}}
	s.SpawnRadius = 20
	s.InitialCellsPerTeam = 8
	w, err := sim.NewWorld(s, 11)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	ids := w.CellIDs()
	target, _ := w.Cell(ids[3])

	id, ok := nearestCell(w, target.Position, 0.5)
	if !ok {
		t.Fatal("expected a cell under the cursor")
	}
	if got, _ := w.Cell(id); got.Position.Sub(target.Position).Len() > 1e-9 {
		t.Fatalf("picked cell %d at %+v, want one at %+v", id, got.Position, target.Position)
	}
	if _, ok := nearestCell(w, sim.Vec2{X: -500, Y: -500}, 5); ok {
		t.Fatal("nothing should be picked far outside the world")
	}
}
