package raster

import (
	"math"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
)

const (
	tileSize   = 256
	maxFitZoom = 17
	maxLat     = 85.05112878
)

// Projection вписывает прямоугольник трека в холст в проекции Web Mercator
type Projection struct {
	scale   float64
	centerX float64
	centerY float64
	originX float64
	originY float64
}

func mercator(p types.Position2D) (float64, float64) {
	lat := math.Max(-maxLat, math.Min(maxLat, p.Latitude))
	x := (p.Longitude + 180) / 360
	sin := math.Sin(lat * math.Pi / 180)
	y := 0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)
	return x, y
}

// NewProjection area задает прямоугольник холста, в который вписывается bounds
func NewProjection(bounds compose.Bounds, minX, minY, maxX, maxY float64) Projection {
	x0, y1 := mercator(bounds.SouthWest)
	x1, y0 := mercator(bounds.NorthEast)

	width := maxX - minX
	height := maxY - minY
	scale := tileSize * math.Pow(2, maxFitZoom)
	if dx := x1 - x0; dx > 0 {
		scale = math.Min(scale, width/dx)
	}
	if dy := y1 - y0; dy > 0 {
		scale = math.Min(scale, height/dy)
	}

	return Projection{
		scale:   scale,
		centerX: (x0 + x1) / 2,
		centerY: (y0 + y1) / 2,
		originX: minX + width/2,
		originY: minY + height/2,
	}
}

func (p Projection) Project(pos types.Position2D) (float64, float64) {
	x, y := mercator(pos)
	return p.originX + (x-p.centerX)*p.scale, p.originY + (y-p.centerY)*p.scale
}
