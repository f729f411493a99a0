package game

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Territory-Sense/internal/sim"
)

// ViewMode selects what the chunk overlay shows.
type ViewMode int

const (
	ViewTerritory ViewMode = iota // ownership-blended team colours
	ViewSupply                    // chunk supply as a grey heat map
	viewModeCount
)

func (m ViewMode) String() string {
	switch m {
	case ViewTerritory:
		return "territory"
	case ViewSupply:
		return "supply"
	default:
		return "unknown"
	}
}

// Next cycles to the following view mode.
func (m ViewMode) Next() ViewMode {
	return (m + 1) % viewModeCount
}

const (
	supplyHeatScale  = 10.0
	overlayAlpha     = 127
	cellAlphaMin     = 150.0
	cellAlphaMax     = 255.0
	groundTextureKey = 7331
)

// supplyColor maps a chunk supply to the heat overlay colour.
func supplyColor(supply float64) color.NRGBA {
	v := supply * supplyHeatScale
	switch {
	case v < 0:
		v = 0
	case v > 255:
		v = 255
	}
	g := uint8(v)
	return color.NRGBA{R: g, G: g, B: g, A: overlayAlpha}
}

// cellColor is the team colour with straight alpha interpolated by health.
func cellColor(team color.RGBA, health float64) color.NRGBA {
	switch {
	case health < 0:
		health = 0
	case health > 1:
		health = 1
	}
	return color.NRGBA{
		R: team.R,
		G: team.G,
		B: team.B,
		A: uint8(cellAlphaMin + (cellAlphaMax-cellAlphaMin)*health),
	}
}

// fillSupplyOverlay writes one supply pixel per chunk into dst.
func fillSupplyOverlay(w *sim.World, dst *image.NRGBA) {
	s := w.Settings()
	for y := 0; y < s.ChunksY; y++ {
		for x := 0; x < s.ChunksX; x++ {
			dst.SetNRGBA(x, y, supplyColor(w.Chunk(x, y).Supply))
		}
	}
}

// premultiply converts straight-alpha pixels into the premultiplied RGBA
// layout WritePixels expects. dst must hold len(src.Pix) bytes.
func premultiply(src *image.NRGBA, dst []byte) {
	for i := 0; i+3 < len(src.Pix); i += 4 {
		a := uint32(src.Pix[i+3])
		dst[i+0] = uint8(uint32(src.Pix[i+0]) * a / 255)
		dst[i+1] = uint8(uint32(src.Pix[i+1]) * a / 255)
		dst[i+2] = uint8(uint32(src.Pix[i+2]) * a / 255)
		dst[i+3] = uint8(a)
	}
}

// Renderer draws a world. It keeps the GPU-side images and scratch buffers
// between frames; the world itself is only read.
type Renderer struct {
	settings sim.Settings

	ground  *ebiten.Image
	overlay *ebiten.Image // one pixel per chunk
	supply  *image.NRGBA
	pixels  []byte
}

// NewRenderer allocates the images for a world with the given settings.
func NewRenderer(s sim.Settings) *Renderer {
	r := &Renderer{
		settings: s,
		ground:   ebiten.NewImageFromImage(groundTexture(s.Width, s.Height, groundTextureKey)),
		overlay:  ebiten.NewImage(s.ChunksX, s.ChunksY),
		supply:   image.NewNRGBA(image.Rect(0, 0, s.ChunksX, s.ChunksY)),
		pixels:   make([]byte, 4*s.ChunksX*s.ChunksY),
	}
	return r
}

// Draw renders the ground, the chunk overlay for mode and every cell onto dst
// in world coordinates.
func (r *Renderer) Draw(dst *ebiten.Image, w *sim.World, mode ViewMode) {
	dst.DrawImage(r.ground, nil)

	src := w.TerritoryImage()
	if mode == ViewSupply {
		fillSupplyOverlay(w, r.supply)
		src = r.supply
	}
	premultiply(src, r.pixels)
	r.overlay.WritePixels(r.pixels)

	op := &ebiten.DrawImageOptions{}
	cs := float64(r.settings.ChunkSize)
	op.GeoM.Scale(cs, cs)
	op.Filter = ebiten.FilterNearest
	dst.DrawImage(r.overlay, op)

	radius := float32(r.settings.CellRadius)
	colors := r.settings.TeamColors
	w.EachCell(func(_ sim.CellID, c *sim.Cell) {
		vector.FillCircle(dst, float32(c.Position.X), float32(c.Position.Y), radius,
			cellColor(colors[c.Team], c.Health), true)
	})
}
