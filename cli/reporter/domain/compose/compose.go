package compose

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/encoding"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	"github.com/paulmach/orb"
)

const (
	DefaultInitialZoom = 8
	TimeLayout         = "2006-01-02 15:04:05"
)

type PathStyle struct {
	Color   string  `yaml:"color" json:"color"`
	Weight  int     `yaml:"weight" json:"weight"`
	Opacity float64 `yaml:"opacity" json:"opacity"`
}

func DefaultPathStyle() PathStyle {
	return PathStyle{Color: "#4682B4", Weight: 3, Opacity: 0.8}
}

type Path struct {
	Points []types.Position2D `json:"points"`
	Style  PathStyle          `json:"style"`
}

type Marker struct {
	Position types.Position2D  `json:"position"`
	Rotation float64           `json:"rotation"`
	Color    encoding.RGB      `json:"color"`
	Size     encoding.IconSize `json:"size"`
	Label    string            `json:"label"`
	Fix      types.Fix         `json:"fix"`
}

// Bounds минимальный прямоугольник, покрывающий все точки трека
type Bounds struct {
	SouthWest types.Position2D `json:"south_west"`
	NorthEast types.Position2D `json:"north_east"`
}

func (b Bounds) IsPoint() bool {
	return b.SouthWest == b.NorthEast
}

func (b Bounds) Center() types.Position2D {
	return types.Position2D{
		Latitude:  (b.SouthWest.Latitude + b.NorthEast.Latitude) / 2,
		Longitude: (b.SouthWest.Longitude + b.NorthEast.Longitude) / 2,
	}
}

// View начальный вид карты. Перед отрисовкой вид всегда подгоняется под Bounds.
type View struct {
	Center types.Position2D `json:"center"`
	Zoom   int              `json:"zoom"`
}

type MapDocument struct {
	Title   string   `json:"title"`
	Path    Path     `json:"path"`
	Markers []Marker `json:"markers"`
	Bounds  Bounds   `json:"bounds"`
	View    View     `json:"view"`
}

type Composer struct {
	Palette     encoding.Palette
	Style       PathStyle
	InitialZoom int
	// Location часовой пояс для подписей; nil означает пояс самой отметки
	Location *time.Location
}

func NewComposer(palette encoding.Palette) *Composer {
	return &Composer{
		Palette:     palette,
		Style:       DefaultPathStyle(),
		InitialZoom: DefaultInitialZoom,
	}
}

// Compose строит описание карты по треку. Второе значение false означает пустой трек:
// рисовать и отправлять нечего.
func (c *Composer) Compose(track types.Track) (MapDocument, bool) {
	if track.IsEmpty() {
		return MapDocument{}, false
	}

	doc := MapDocument{
		Title:   track.Device.Label(),
		Path:    Path{Points: make([]types.Position2D, 0, track.Len()), Style: c.Style},
		Markers: make([]Marker, 0, track.Len()),
	}

	for _, fix := range track.Fixes {
		doc.Path.Points = append(doc.Path.Points, fix.Position())
		doc.Markers = append(doc.Markers, c.marker(fix))
	}

	doc.Bounds = BoundsOf(doc.Path.Points)

	zoom := c.InitialZoom
	if zoom <= 0 {
		zoom = DefaultInitialZoom
	}
	doc.View = View{Center: doc.Path.Points[0], Zoom: zoom}

	return doc, true
}

func (c *Composer) marker(fix types.Fix) Marker {
	return Marker{
		Position: fix.Position(),
		Rotation: Rotation(fix.Course),
		Color:    c.Palette.ColorForSpeed(fix.Speed),
		Size:     c.Palette.SizeForAltitude(fix.Altitude),
		Label:    c.label(fix),
		Fix:      fix,
	}
}

func (c *Composer) label(fix types.Fix) string {
	ts := fix.Timestamp
	if c.Location != nil {
		ts = ts.In(c.Location)
	}

	return strings.Join([]string{
		"Time: " + ts.Format(TimeLayout),
		fmt.Sprintf("Speed: %.1f kn", fix.Speed),
		fmt.Sprintf("Altitude: %.1f m", fix.Altitude),
		"Direction: " + strconv.FormatFloat(fix.Course, 'f', -1, 64) + "°",
	}, "\n")
}

// Rotation переводит курс (0 - север) в угол поворота стрелки на экране (0 - вправо)
func Rotation(course float64) float64 {
	angle := math.Mod(course-90, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}

func BoundsOf(points []types.Position2D) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	mp := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		mp = append(mp, orb.Point{p.Longitude, p.Latitude})
	}
	b := mp.Bound()

	return Bounds{
		SouthWest: types.Position2D{Latitude: b.Min.Lat(), Longitude: b.Min.Lon()},
		NorthEast: types.Position2D{Latitude: b.Max.Lat(), Longitude: b.Max.Lon()},
	}
}
