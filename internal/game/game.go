package game

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/Garsondee/Territory-Sense/internal/observer"
	"github.com/Garsondee/Territory-Sense/internal/sim"
	"github.com/Garsondee/Territory-Sense/internal/telemetry"
)

// borderWidth is the pixel gap between the window edge and the world.
const borderWidth = 16

const (
	zoomMin, zoomMax    = 1.0, 6.0
	pickRadius          = 10.0 // screen pixels
	inspectRange        = 64.0 // world pixels
	defaultReportEvery  = 60
	defaultPublishEvery = 6
	flipFlushTicks      = 60
)

// simSpeeds are the selectable ticks-per-frame multipliers.
var simSpeeds = []float64{0, 0.25, 0.5, 1, 2, 4, 8}

// Options configures a Game.
type Options struct {
	Settings sim.Settings
	Seed     int64
	Elapsed  float64 // simulated time per tick

	// Hub, when set, receives a snapshot every PublishEvery ticks.
	Hub          *observer.Hub
	PublishEvery int

	ReportEvery  int
	ReportWindow int

	Logger *slog.Logger
}

// Game is the interactive viewer. It implements ebiten.Game and owns the
// only World; rendering and observers read it between ticks.
type Game struct {
	world    *sim.World
	elapsed  float64
	renderer *Renderer
	events   *EventLog
	reporter *telemetry.Reporter
	hub      *observer.Hub
	log      *slog.Logger

	width, height int // window
	worldW        int
	worldH        int
	offX, offY    int

	worldBuf *ebiten.Image

	viewMode ViewMode
	showHUD  bool
	status   string

	selected     sim.CellID
	selectedSeed int32 // slots are reused, the seed tells occupants apart
	hasSelected  bool

	camX, camY, camZoom float64

	simSpeed  float64
	tickAccum float64

	publishEvery int
	reportEvery  int
	pendingFlips int
	prevAlive    []int
}

// New builds the world and the viewer around it.
func New(opts Options) (*Game, error) {
	w, err := sim.NewWorld(opts.Settings, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}
	s := w.Settings()

	if opts.Elapsed <= 0 {
		opts.Elapsed = 1.0 / 60
	}
	if opts.PublishEvery <= 0 {
		opts.PublishEvery = defaultPublishEvery
	}
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = defaultReportEvery
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	g := &Game{
		world:        w,
		elapsed:      opts.Elapsed,
		renderer:     NewRenderer(s),
		events:       NewEventLog(),
		reporter:     telemetry.NewReporter(opts.ReportWindow),
		hub:          opts.Hub,
		log:          opts.Logger,
		width:        borderWidth + s.Width + borderWidth + logPanelWidth,
		height:       borderWidth + s.Height + borderWidth,
		worldW:       s.Width,
		worldH:       s.Height,
		offX:         borderWidth,
		offY:         borderWidth,
		worldBuf:     ebiten.NewImage(s.Width, s.Height),
		showHUD:      true,
		camX:         float64(s.Width) / 2,
		camY:         float64(s.Height) / 2,
		camZoom:      1,
		simSpeed:     1,
		publishEvery: opts.PublishEvery,
		reportEvery:  opts.ReportEvery,
		prevAlive:    teamAlive(w),
	}
	g.events.Add(0, -1, fmt.Sprintf("seed %d, %d cells", opts.Seed, w.CellCount()))
	g.publish()
	return g, nil
}

// World returns the simulated world.
func (g *Game) World() *sim.World { return g.world }

// WindowSize returns the window size the game lays out to.
func (g *Game) WindowSize() (int, int) { return g.width, g.height }

func (g *Game) Update() error {
	g.handleInput()

	if g.simSpeed <= 0 {
		return nil
	}
	// Speeds above 1 run several ticks per frame, speeds below accumulate.
	g.tickAccum += g.simSpeed
	for g.tickAccum >= 1.0 {
		g.tickAccum -= 1.0
		g.simTick()
	}
	return nil
}

// simTick runs one world step and feeds the event panel, reporter and observers.
func (g *Game) simTick() {
	g.world.Step(g.elapsed)
	tick := g.world.Tick()
	st := g.world.Stats()

	if st.Births > 0 {
		g.events.Add(tick, -1, fmt.Sprintf("%d born", st.Births))
	}
	if st.Starved > 0 {
		g.events.Add(tick, -1, fmt.Sprintf("%d starved", st.Starved))
	}
	if st.Killed > 0 {
		g.events.Add(tick, -1, fmt.Sprintf("%d killed", st.Killed))
	}
	g.pendingFlips += st.OwnerFlips
	if tick%flipFlushTicks == 0 && g.pendingFlips > 0 {
		g.events.Add(tick, -1, fmt.Sprintf("%d chunks changed hands", g.pendingFlips))
		g.pendingFlips = 0
	}

	alive := teamAlive(g.world)
	for team, n := range alive {
		if n == 0 && g.prevAlive[team] > 0 {
			g.events.Add(tick, team, fmt.Sprintf("team %d eliminated", team))
			g.log.Info("team eliminated", "team", team, "tick", tick)
		}
	}
	g.prevAlive = alive

	if tick%g.reportEvery == 0 {
		g.reporter.Collect(g.world)
	}
	if tick%g.publishEvery == 0 {
		g.publish()
	}
}

func (g *Game) publish() {
	if g.hub == nil {
		return
	}
	if err := g.hub.Publish(g.world.Snapshot()); err != nil {
		g.log.Warn("publish snapshot", "err", err)
	}
}

func teamAlive(w *sim.World) []int {
	alive := make([]int, w.Settings().NumTeams)
	w.EachCell(func(_ sim.CellID, c *sim.Cell) { alive[c.Team]++ })
	return alive
}

// handleInput processes key presses (edge-triggered) and camera controls.
func (g *Game) handleInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		g.viewMode = g.viewMode.Next()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		g.showHUD = !g.showHUD
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.copyReport()
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		mx, my := ebiten.CursorPosition()
		wx, wy := g.screenToWorld(mx, my)
		g.selected, g.hasSelected = nearestCell(g.world, sim.Vec2{X: wx, Y: wy}, pickRadius/g.camZoom)
		if c, ok := g.world.Cell(g.selected); ok && g.hasSelected {
			g.selectedSeed = c.Seed
		}
	}

	// Sim speed: P=pause/resume, ,=slower, .=faster.
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		if g.simSpeed > 0 {
			g.simSpeed = 0
		} else {
			g.simSpeed = 1
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyComma) {
		g.simSpeed = slowerSpeed(g.simSpeed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPeriod) {
		g.simSpeed = fasterSpeed(g.simSpeed)
	}

	panSpeed := 6.0 / g.camZoom
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		g.camY -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		g.camY += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		g.camX -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		g.camX += panSpeed
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		g.camZoom *= math.Pow(1.12, wy)
	}
	g.camX, g.camY, g.camZoom = clampCamera(g.camX, g.camY, g.camZoom, float64(g.worldW), float64(g.worldH))
}

// copyReport puts the latest telemetry summary on the system clipboard.
func (g *Game) copyReport() {
	rpt := telemetry.FormatReport(telemetry.Collect(g.world)) + g.reporter.WindowSummary().Format()
	if err := clipboard.WriteAll(rpt); err != nil {
		g.status = "clipboard unavailable"
		g.log.Warn("copy report", "err", err)
		return
	}
	g.status = "report copied"
}

// slowerSpeed returns the next lower entry of simSpeeds.
func slowerSpeed(cur float64) float64 {
	for i := len(simSpeeds) - 1; i > 0; i-- {
		if simSpeeds[i] <= cur {
			return simSpeeds[i-1]
		}
	}
	return simSpeeds[0]
}

// fasterSpeed returns the next higher entry of simSpeeds.
func fasterSpeed(cur float64) float64 {
	for _, s := range simSpeeds {
		if s > cur {
			return s
		}
	}
	return simSpeeds[len(simSpeeds)-1]
}

// clampCamera keeps the zoom in range and the view inside the world.
func clampCamera(x, y, zoom, worldW, worldH float64) (float64, float64, float64) {
	zoom = math.Max(zoomMin, math.Min(zoomMax, zoom))
	halfW := worldW / 2 / zoom
	halfH := worldH / 2 / zoom
	x = math.Max(halfW, math.Min(worldW-halfW, x))
	y = math.Max(halfH, math.Min(worldH-halfH, y))
	return x, y, zoom
}

func speedLabel(speed float64) string {
	switch {
	case speed == 0:
		return "PAUSED"
	case speed == math.Trunc(speed):
		return fmt.Sprintf("%.0fx", speed)
	default:
		return fmt.Sprintf("%.2gx", speed)
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 8, G: 10, B: 12, A: 255})

	g.worldBuf.Clear()
	g.renderer.Draw(g.worldBuf, g.world, g.viewMode)
	g.drawInspector(g.worldBuf)

	// Camera: camX/camY at the viewport centre, then zoom. The sub-image
	// clips the zoomed world to its frame; it shares screen coordinates.
	view := screen.SubImage(image.Rect(g.offX, g.offY, g.offX+g.worldW, g.offY+g.worldH)).(*ebiten.Image)
	var blit ebiten.DrawImageOptions
	blit.GeoM.Translate(-g.camX, -g.camY)
	blit.GeoM.Scale(g.camZoom, g.camZoom)
	blit.GeoM.Translate(float64(g.worldW)/2+float64(g.offX), float64(g.worldH)/2+float64(g.offY))
	view.DrawImage(g.worldBuf, &blit)

	ox, oy := float32(g.offX), float32(g.offY)
	vector.StrokeRect(screen, ox-1, oy-1, float32(g.worldW)+2, float32(g.worldH)+2, 2.0, color.RGBA{R: 60, G: 75, B: 90, A: 255}, false)

	panelX := g.offX + g.worldW + borderWidth
	g.events.Draw(screen, panelX, g.height, g.world.Settings().TeamColors)

	if g.showHUD {
		g.drawHUD(screen)
	}
}

// drawHUD renders status and key hints in the bottom-left corner.
func (g *Game) drawHUD(screen *ebiten.Image) {
	lines := []string{
		fmt.Sprintf("T=%d  t=%.1f  cells=%d", g.world.Tick(), g.world.Clock(), g.world.CellCount()),
		fmt.Sprintf("SIM: %s  P=pause  ,/. speed", speedLabel(g.simSpeed)),
		fmt.Sprintf("View: %s  V=switch", g.viewMode),
		fmt.Sprintf("zoom: %.1fx  WASD=pan  scroll=zoom", g.camZoom),
		"C=copy report  H=hide HUD  click=inspect",
	}
	if c, ok := g.selectedCell(); ok {
		lines = append(lines, fmt.Sprintf("cell %d t%d  hp=%.2f  sup=%.2f  str=%.2f",
			g.selected, c.Team, c.Health, c.Supply, c.Strength))
	}
	if g.status != "" {
		lines = append(lines, g.status)
	}

	const lineH = 14
	const padX, padY = 6, 4
	face := basicfont.Face7x13
	maxLen := 0
	for _, l := range lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	boxW := float32(maxLen*face.Advance + padX*2)
	boxH := float32(len(lines)*lineH + padY*2)
	bx := float32(g.offX + 6)
	by := float32(g.offY+g.worldH) - boxH - 6

	vector.FillRect(screen, bx, by, boxW, boxH, color.RGBA{R: 6, G: 8, B: 12, A: 210}, false)
	vector.StrokeRect(screen, bx, by, boxW, boxH, 1.0, color.RGBA{R: 60, G: 90, B: 110, A: 180}, false)
	for i, line := range lines {
		text.Draw(screen, line, face, int(bx)+padX, int(by)+padY+(i+1)*lineH-3, color.White)
	}
}

// screenToWorld inverts the camera transform used in Draw.
func (g *Game) screenToWorld(sx, sy int) (float64, float64) {
	x := (float64(sx-g.offX)-float64(g.worldW)/2)/g.camZoom + g.camX
	y := (float64(sy-g.offY)-float64(g.worldH)/2)/g.camZoom + g.camY
	return x, y
}

// nearestCell returns the live cell closest to p within maxDist.
func nearestCell(w *sim.World, p sim.Vec2, maxDist float64) (sim.CellID, bool) {
	best := maxDist
	var bestID sim.CellID
	found := false
	w.EachCell(func(id sim.CellID, c *sim.Cell) {
		if d := c.Position.Sub(p).Len(); d < best {
			best, bestID, found = d, id, true
		}
	})
	return bestID, found
}

// selectedCell returns the inspected cell while it is alive.
func (g *Game) selectedCell() (sim.Cell, bool) {
	if !g.hasSelected {
		return sim.Cell{}, false
	}
	c, ok := g.world.Cell(g.selected)
	if !ok || c.Seed != g.selectedSeed {
		g.hasSelected = false
		return sim.Cell{}, false
	}
	return c, true
}

// drawInspector rings the selected cell and links it to its nearest
// friendly and hostile neighbours.
func (g *Game) drawInspector(dst *ebiten.Image) {
	c, ok := g.selectedCell()
	if !ok {
		return
	}
	x, y := float32(c.Position.X), float32(c.Position.Y)
	if id, ok := g.world.NearestFriendly(g.selected, inspectRange); ok {
		f, _ := g.world.Cell(id)
		vector.StrokeLine(dst, x, y, float32(f.Position.X), float32(f.Position.Y), 1, color.RGBA{R: 200, G: 220, B: 255, A: 200}, true)
	}
	if id, ok := g.world.NearestEnemy(g.selected, inspectRange); ok {
		e, _ := g.world.Cell(id)
		vector.StrokeLine(dst, x, y, float32(e.Position.X), float32(e.Position.Y), 1, color.RGBA{R: 255, G: 80, B: 60, A: 220}, true)
	}
	vector.StrokeCircle(dst, x, y, float32(g.world.Settings().CellRadius)+3, 1, color.White, true)
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}
