package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mromano1/equity-atlas/internal/equity"
	"github.com/mromano1/equity-atlas/internal/proj"
)

// Options controls the choropleth output.
type Options struct {
	Width   int
	Height  int
	Title   string
	Classes int
	Palette []string
}

// DefaultPalette is a five-class sequential pink-purple ramp, light to dark.
var DefaultPalette = []string{"#feebe2", "#fbb4b9", "#f768a1", "#c51b8a", "#7a0177"}

const (
	defaultWidth   = 1000
	defaultHeight  = 800
	defaultClasses = 5

	margin       = 30.0
	titleSpace   = 40.0
	legendSpace  = 90.0
	strokeColor  = "#ffffff"
	missingColor = "#d9d9d9"
)

func (o *Options) applyDefaults() {
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	if o.Classes <= 0 {
		o.Classes = defaultClasses
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
}

// Choropleth renders the counties as an SVG map shaded by poverty rate.
// Geometries are projected to the UTM zone covering the data so shapes keep
// their proportions, then scaled to fit the viewport.
func Choropleth(counties []equity.County, opts Options) ([]byte, error) {
	opts.applyDefaults()
	if len(opts.Palette) < opts.Classes {
		return nil, eris.Errorf("render: palette has %d colors, need %d", len(opts.Palette), opts.Classes)
	}

	var geoms []*geom.MultiPolygon
	rates := make([]float64, 0, len(counties))
	for i := range counties {
		if counties[i].Geom == nil || counties[i].Geom.NumPolygons() == 0 {
			continue
		}
		geoms = append(geoms, counties[i].Geom)
		rates = append(rates, counties[i].PovertyRate)
	}
	if len(geoms) == 0 {
		return nil, eris.New("render: no counties with geometry")
	}

	breaks, err := QuantileBreaks(rates, opts.Classes)
	if err != nil {
		return nil, eris.Wrap(err, "render: classify rates")
	}

	zone := proj.ZoneFor(geoms)
	projected := make([]*geom.MultiPolygon, len(geoms))
	bounds := geom.NewBounds(geom.XY)
	for i, g := range geoms {
		projected[i] = proj.Project(g, zone)
		bounds.Extend(projected[i])
	}

	tr := fitViewport(bounds, float64(opts.Width), float64(opts.Height))

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		opts.Width, opts.Height, opts.Width, opts.Height)
	b.WriteString(`<rect width="100%" height="100%" fill="#ffffff"/>` + "\n")

	if opts.Title != "" {
		fmt.Fprintf(&b, `<text x="%d" y="26" text-anchor="middle" font-family="sans-serif" font-size="20" fill="#222222">%s</text>`+"\n",
			opts.Width/2, html.EscapeString(opts.Title))
	}

	pi := 0
	for i := range counties {
		c := &counties[i]
		if c.Geom == nil || c.Geom.NumPolygons() == 0 {
			continue
		}
		fill := opts.Palette[ClassOf(c.PovertyRate, breaks)]
		path := pathData(projected[pi], tr)
		pi++
		if path == "" {
			continue
		}
		fmt.Fprintf(&b, `<path d="%s" fill="%s" stroke="%s" stroke-width="0.5"><title>%s: %.1f%%</title></path>`+"\n",
			path, fill, strokeColor, html.EscapeString(c.Name), c.PovertyRate)
	}

	writeLegend(&b, breaks, opts)
	b.WriteString("</svg>\n")

	zap.L().Info("render: choropleth generated",
		zap.Int("counties", len(geoms)),
		zap.Int("classes", opts.Classes),
		zap.Int("utm_zone", int(zone)),
	)
	return []byte(b.String()), nil
}

// transform maps projected meters into SVG pixel space, flipping Y so north
// is up.
type transform struct {
	scale   float64
	offsetX float64
	offsetY float64
	minX    float64
	maxY    float64
}

func fitViewport(bounds *geom.Bounds, width, height float64) transform {
	innerW := width - 2*margin
	innerH := height - 2*margin - titleSpace - legendSpace

	spanX := bounds.Max(0) - bounds.Min(0)
	spanY := bounds.Max(1) - bounds.Min(1)
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}

	scale := innerW / spanX
	if s := innerH / spanY; s < scale {
		scale = s
	}

	return transform{
		scale:   scale,
		offsetX: margin + (innerW-spanX*scale)/2,
		offsetY: margin + titleSpace + (innerH-spanY*scale)/2,
		minX:    bounds.Min(0),
		maxY:    bounds.Max(1),
	}
}

func (t transform) apply(x, y float64) (float64, float64) {
	return t.offsetX + (x-t.minX)*t.scale, t.offsetY + (t.maxY-y)*t.scale
}

func pathData(mp *geom.MultiPolygon, tr transform) string {
	var b strings.Builder
	for p := 0; p < mp.NumPolygons(); p++ {
		poly := mp.Polygon(p)
		for r := 0; r < poly.NumLinearRings(); r++ {
			ring := poly.LinearRing(r)
			coords := ring.FlatCoords()
			stride := ring.Stride()
			for i := 0; i+1 < len(coords); i += stride {
				x, y := tr.apply(coords[i], coords[i+1])
				if i == 0 {
					fmt.Fprintf(&b, "M%.1f %.1f", x, y)
				} else {
					fmt.Fprintf(&b, "L%.1f %.1f", x, y)
				}
			}
			b.WriteString("Z")
		}
	}
	return b.String()
}

func writeLegend(b *strings.Builder, breaks []float64, opts Options) {
	x := margin
	y := float64(opts.Height) - legendSpace + 20

	fmt.Fprintf(b, `<text x="%.0f" y="%.0f" font-family="sans-serif" font-size="13" fill="#222222">Poverty rate (%%)</text>`+"\n", x, y-6)

	lo := 0.0
	for i, hi := range breaks {
		bx := x + float64(i)*120
		fmt.Fprintf(b, `<rect x="%.0f" y="%.0f" width="16" height="16" fill="%s" stroke="#999999" stroke-width="0.5"/>`+"\n",
			bx, y, opts.Palette[i])
		fmt.Fprintf(b, `<text x="%.0f" y="%.0f" font-family="sans-serif" font-size="12" fill="#444444">%.1f&#8211;%.1f</text>`+"\n",
			bx+22, y+13, lo, hi)
		lo = hi
	}
}
