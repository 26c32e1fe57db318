package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/i474232898/weather-history/internal/weather"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data available")

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	Title  string
	XLabel string
	YLabel string
}

// DefaultOptions matches a 10x6 inch figure at 100 dpi.
func DefaultOptions() Options {
	return Options{
		Width:  1000,
		Height: 600,
		Title:  "Temperature by city",
		XLabel: "Data index",
		YLabel: "Temperature (°C)",
	}
}

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func fontFace(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("failed to load font: %w", fontErr)
	}
	return truetype.NewFace(fontTTF, &truetype.Options{Size: size}), nil
}

// Render draws series as overlaid lines and writes a PNG to w.
// The x-axis is the reading index within each series.
func Render(w io.Writer, series []Series, opts Options) error {
	dc, err := draw(series, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// RenderFile renders to path, overwriting any previous image.
func RenderFile(path string, series []Series, opts Options) error {
	dc, err := draw(series, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return dc.SavePNG(path)
}

// Renderer renders the history chart to a fixed file path.
type Renderer struct {
	path string
	opts Options
}

func NewRenderer(path string, opts Options) *Renderer {
	return &Renderer{path: path, opts: opts}
}

// Render groups readings by city and writes the chart, returning its path.
func (r *Renderer) Render(readings []weather.Reading) (string, error) {
	if err := RenderFile(r.path, Group(readings), r.opts); err != nil {
		return "", err
	}
	return r.path, nil
}

type plotArea struct {
	left, top, right, bottom float64
	minY, maxY               float64
	maxX                     float64
}

func (p plotArea) x(i int) float64 {
	return p.left + float64(i)/p.maxX*(p.right-p.left)
}

func (p plotArea) y(v float64) float64 {
	return p.bottom - (v-p.minY)/(p.maxY-p.minY)*(p.bottom-p.top)
}

func draw(series []Series, opts Options) (*gg.Context, error) {
	points := 0
	longest := 0
	for _, s := range series {
		points += len(s.Values)
		if len(s.Values) > longest {
			longest = len(s.Values)
		}
	}
	if points == 0 {
		return nil, ErrNoData
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	area := newPlotArea(series, longest, float64(opts.Width), float64(opts.Height))

	small, err := fontFace(12)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(small)
	drawGrid(dc, area)

	dc.SetHexColor("#000000")
	dc.SetLineWidth(1)
	dc.DrawRectangle(area.left, area.top, area.right-area.left, area.bottom-area.top)
	dc.Stroke()

	for i, s := range series {
		dc.SetHexColor(palette[i%len(palette)])
		drawLine(dc, area, s.Values)
	}

	drawLegend(dc, area, series)

	dc.SetHexColor("#000000")
	dc.DrawStringAnchored(opts.XLabel, (area.left+area.right)/2, area.bottom+40, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 20, (area.top+area.bottom)/2)
	dc.DrawStringAnchored(opts.YLabel, 20, (area.top+area.bottom)/2, 0.5, 0.5)
	dc.Pop()

	title, err := fontFace(18)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(title)
	dc.DrawStringAnchored(opts.Title, (area.left+area.right)/2, area.top/2, 0.5, 0.5)

	return dc, nil
}

func newPlotArea(series []Series, longest int, width, height float64) plotArea {
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	if maxY-minY < 1 {
		minY -= 1
		maxY += 1
	}
	pad := (maxY - minY) * 0.05

	maxX := float64(longest - 1)
	if maxX < 1 {
		maxX = 1
	}

	return plotArea{
		left:   70,
		top:    50,
		right:  width - 180,
		bottom: height - 60,
		minY:   minY - pad,
		maxY:   maxY + pad,
		maxX:   maxX,
	}
}

func drawGrid(dc *gg.Context, a plotArea) {
	dc.SetLineWidth(1)

	const yTicks = 6
	for i := 0; i <= yTicks; i++ {
		v := a.minY + (a.maxY-a.minY)*float64(i)/yTicks
		y := a.y(v)
		dc.SetHexColor("#dddddd")
		dc.DrawLine(a.left, y, a.right, y)
		dc.Stroke()
		dc.SetHexColor("#000000")
		dc.DrawStringAnchored(fmt.Sprintf("%.1f", v), a.left-8, y, 1, 0.5)
	}

	step := int(math.Ceil(a.maxX / 10))
	if step < 1 {
		step = 1
	}
	for i := 0; float64(i) <= a.maxX; i += step {
		x := a.x(i)
		dc.SetHexColor("#dddddd")
		dc.DrawLine(x, a.top, x, a.bottom)
		dc.Stroke()
		dc.SetHexColor("#000000")
		dc.DrawStringAnchored(fmt.Sprintf("%d", i), x, a.bottom+14, 0.5, 0.5)
	}
}

func drawLine(dc *gg.Context, a plotArea, values []float64) {
	if len(values) == 1 {
		dc.DrawCircle(a.x(0), a.y(values[0]), 3)
		dc.Fill()
		return
	}
	dc.SetLineWidth(2)
	for i, v := range values {
		if i == 0 {
			dc.MoveTo(a.x(i), a.y(v))
			continue
		}
		dc.LineTo(a.x(i), a.y(v))
	}
	dc.Stroke()
}

func drawLegend(dc *gg.Context, a plotArea, series []Series) {
	x := a.right + 20
	y := a.top + 10
	for i, s := range series {
		dc.SetHexColor(palette[i%len(palette)])
		dc.SetLineWidth(3)
		dc.DrawLine(x, y, x+24, y)
		dc.Stroke()
		dc.SetHexColor("#000000")
		dc.DrawStringAnchored(s.City, x+32, y, 0, 0.5)
		y += 20
	}
}
