package compose

import (
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func point(p types.Position2D) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// FeatureCollection путь как LineString и маркеры как Point со свойствами оформления
func (d MapDocument) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(d.Path.Points))
	for _, p := range d.Path.Points {
		line = append(line, point(p))
	}
	path := geojson.NewFeature(line)
	path.Properties["kind"] = "path"
	path.Properties["stroke"] = d.Path.Style.Color
	path.Properties["stroke-width"] = d.Path.Style.Weight
	path.Properties["stroke-opacity"] = d.Path.Style.Opacity
	fc.Append(path)

	for i, m := range d.Markers {
		f := geojson.NewFeature(point(m.Position))
		f.Properties["kind"] = "marker"
		f.Properties["index"] = i
		f.Properties["marker-color"] = m.Color.Hex()
		f.Properties["size"] = m.Size.Width
		f.Properties["rotation"] = m.Rotation
		f.Properties["label"] = m.Label
		f.Properties["time"] = m.Fix.Timestamp.Format(TimeLayout)
		f.Properties["speed"] = m.Fix.Speed
		f.Properties["altitude"] = m.Fix.Altitude
		f.Properties["course"] = m.Fix.Course
		fc.Append(f)
	}

	fc.BBox = geojson.NewBBox(orb.Bound{Min: point(d.Bounds.SouthWest), Max: point(d.Bounds.NorthEast)})

	return fc
}
