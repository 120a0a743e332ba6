package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const (
	DefaultWidth   = 1920
	DefaultHeight  = 1080
	DefaultPadding = 40
	headerHeight   = 24

	markersPerCheck = 64
)

var (
	background = color.RGBA{R: 0xf2, G: 0xef, B: 0xe9, A: 0xff}
	textColor  = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	fallback   = color.RGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff}
)

// Renderer рисует трек без браузера: линия пути, стрелки-маркеры и заголовок
type Renderer struct {
	Width   int
	Height  int
	Padding int
	// Timeout ограничивает отрисовку одного трека; 0 без ограничения
	Timeout time.Duration
}

func (r *Renderer) size() (int, int, int) {
	w, h, pad := r.Width, r.Height, r.Padding
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	if pad < 0 || 2*pad >= w || 2*pad+headerHeight >= h {
		pad = 0
	}
	return w, h, pad
}

func (r *Renderer) Render(ctx context.Context, doc compose.MapDocument, _ string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	img, err := r.DrawContext(ctx, doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("не удалось закодировать PNG: %v", err)
	}

	return buf.Bytes(), nil
}

// Draw возвращает изображение карты
func (r *Renderer) Draw(doc compose.MapDocument) *image.RGBA {
	img, _ := r.DrawContext(context.Background(), doc)
	return img
}

// DrawContext как Draw, но прерывается при отмене ctx между маркерами
func (r *Renderer) DrawContext(ctx context.Context, doc compose.MapDocument) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h, pad := r.size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	proj := r.projection(doc, w, h, pad)

	drawPath(img, doc.Path, proj)
	for i, m := range doc.Markers {
		if i%markersPerCheck == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		x, y := proj.Project(m.Position)
		drawArrow(img, x, y, float64(m.Size.Width), m.Rotation, color.RGBA{R: m.Color.R, G: m.Color.G, B: m.Color.B, A: 0xff})
	}
	drawHeader(img, doc.Title, pad)

	return img, nil
}

func (r *Renderer) projection(doc compose.MapDocument, w, h, pad int) Projection {
	return NewProjection(doc.Bounds,
		float64(pad), float64(pad+headerHeight),
		float64(w-pad), float64(h-pad))
}

// outline набор замкнутых контуров в координатах холста
type outline struct {
	contours [][][2]float64
	minX     float64
	minY     float64
	maxX     float64
	maxY     float64
}

func newOutline() *outline {
	return &outline{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
}

func (o *outline) add(contour ...[2]float64) {
	for _, p := range contour {
		o.minX = math.Min(o.minX, p[0])
		o.minY = math.Min(o.minY, p[1])
		o.maxX = math.Max(o.maxX, p[0])
		o.maxY = math.Max(o.maxY, p[1])
	}
	o.contours = append(o.contours, contour)
}

// mask растеризует контуры только в пределах их габаритов, обрезанных по холсту
func (o *outline) mask(canvas image.Rectangle) (*image.Alpha, bool) {
	if len(o.contours) == 0 {
		return nil, false
	}
	r := image.Rect(
		int(math.Floor(o.minX)), int(math.Floor(o.minY)),
		int(math.Ceil(o.maxX))+1, int(math.Ceil(o.maxY))+1,
	).Intersect(canvas)
	if r.Empty() {
		return nil, false
	}

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, c := range o.contours {
		z.MoveTo(float32(c[0][0]-ox), float32(c[0][1]-oy))
		for _, p := range c[1:] {
			z.LineTo(float32(p[0]-ox), float32(p[1]-oy))
		}
		z.ClosePath()
	}

	m := image.NewAlpha(r)
	z.DrawOp = draw.Src
	z.Draw(m, r, image.Opaque, image.Point{})
	return m, true
}

func drawPath(img *image.RGBA, path compose.Path, proj Projection) {
	if len(path.Points) < 2 {
		return
	}

	c, err := parseHex(path.Style.Color)
	if err != nil {
		c = fallback
	}
	width := float64(path.Style.Weight)
	if width <= 0 {
		width = 1
	}
	alpha := path.Style.Opacity
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}

	// весь путь одной маской, прозрачность накладывается один раз
	o := newOutline()
	px, py := proj.Project(path.Points[0])
	for _, p := range path.Points[1:] {
		x, y := proj.Project(p)
		if quad, ok := segment(px, py, x, y, width/2); ok {
			o.add(quad...)
		}
		o.add(disc(x, y, width/2)...)
		px, py = x, y
	}

	m, ok := o.mask(img.Bounds())
	if !ok {
		return
	}
	src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(alpha * 255))})
	draw.DrawMask(img, m.Bounds(), src, image.Point{}, m, m.Bounds().Min, draw.Over)
}

// segment прямоугольник толщиной 2*half вокруг отрезка
func segment(x0, y0, x1, y1, half float64) ([][2]float64, bool) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil, false
	}
	nx, ny := -dy/length*half, dx/length*half

	return [][2]float64{
		{x0 + nx, y0 + ny},
		{x1 + nx, y1 + ny},
		{x1 - nx, y1 - ny},
		{x0 - nx, y0 - ny},
	}, true
}

// disc обходится в том же направлении, что и segment, иначе перекрытия взаимно вычитаются
func disc(cx, cy, radius float64) [][2]float64 {
	const steps = 12
	points := make([][2]float64, 0, steps)
	for i := 0; i < steps; i++ {
		a := -2 * math.Pi * float64(i) / steps
		points = append(points, [2]float64{cx + radius*math.Cos(a), cy + radius*math.Sin(a)})
	}
	return points
}

// arrowShape контур стрелки, острием вдоль оси X
var arrowShape = [][2]float64{
	{0.5, 0},
	{-0.5, -0.4},
	{-0.25, 0},
	{-0.5, 0.4},
}

func drawArrow(img *image.RGBA, cx, cy, size, rotation float64, c color.RGBA) {
	if size <= 0 {
		return
	}

	// ось Y холста направлена вниз, поэтому положительный угол поворачивает по часовой стрелке
	rad := rotation * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	contour := make([][2]float64, 0, len(arrowShape))
	for _, v := range arrowShape {
		x := v[0]*size*cos - v[1]*size*sin
		y := v[0]*size*sin + v[1]*size*cos
		contour = append(contour, [2]float64{cx + x, cy + y})
	}

	o := newOutline()
	o.add(contour...)
	m, ok := o.mask(img.Bounds())
	if !ok {
		return
	}
	draw.DrawMask(img, m.Bounds(), image.NewUniform(c), image.Point{}, m, m.Bounds().Min, draw.Over)
}

func drawHeader(img *image.RGBA, title string, pad int) {
	if title == "" {
		return
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(pad+4, pad+16),
	}
	d.DrawString(title)
}

func parseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("некорректный цвет %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("некорректный цвет %q: %v", s, err)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
