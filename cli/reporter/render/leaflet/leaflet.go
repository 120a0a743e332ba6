package leaflet

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
)

const (
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "&copy; OpenStreetMap contributors"
	leafletVersion     = "1.9.4"
	// максимальный зум при подгонке под вырожденный прямоугольник из одной точки
	fitMaxZoom = 17
)

type Options struct {
	TileURL     string
	Attribution string
}

var page = template.Must(template.New("track").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@{{.Version}}/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@{{.Version}}/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; width: 100%; margin: 0; padding: 0; }
.track-arrow { background: none; border: none; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var doc = {{.Doc}};
var tileURL = {{.TileURL}};
var attribution = {{.Attribution}};

function escapeText(s) {
  var d = document.createElement('div');
  d.textContent = s;
  return d.innerHTML;
}

var map = L.map('map').setView([doc.view.center.latitude, doc.view.center.longitude], doc.view.zoom);
L.tileLayer(tileURL, { maxZoom: 19, attribution: attribution }).addTo(map);

L.polyline(doc.path.points.map(function (p) { return [p.latitude, p.longitude]; }), {
  color: doc.path.style.color,
  weight: doc.path.style.weight,
  opacity: doc.path.style.opacity
}).addTo(map);

doc.markers.forEach(function (m) {
  var html = '<div style="transform: rotate(' + m.rotation + 'deg); color: ' + m.color +
    '; font-size: ' + m.size.width + 'px; line-height: 1;">&#x27a4;</div>';
  var icon = L.divIcon({
    html: html,
    className: 'track-arrow',
    iconSize: [m.size.width, m.size.height],
    iconAnchor: [Math.floor(m.size.width / 2), Math.floor(m.size.height / 2)]
  });
  L.marker([m.position.latitude, m.position.longitude], { icon: icon })
    .bindPopup(m.label.split('\n').map(escapeText).join('<br>'))
    .addTo(map);
});

map.fitBounds([
  [doc.bounds.south_west.latitude, doc.bounds.south_west.longitude],
  [doc.bounds.north_east.latitude, doc.bounds.north_east.longitude]
], { maxZoom: {{.FitMaxZoom}}, padding: [20, 20] });
</script>
</body>
</html>
`))

// Document интерактивная HTML-карта трека
func Document(doc compose.MapDocument, title string, opts Options) ([]byte, error) {
	if opts.TileURL == "" {
		opts.TileURL = DefaultTileURL
	}
	if opts.Attribution == "" {
		opts.Attribution = DefaultAttribution
	}

	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title       string
		Version     string
		Doc         compose.MapDocument
		TileURL     string
		Attribution string
		FitMaxZoom  int
	}{
		Title:       title,
		Version:     leafletVersion,
		Doc:         doc,
		TileURL:     opts.TileURL,
		Attribution: opts.Attribution,
		FitMaxZoom:  fitMaxZoom,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования HTML-карты: %v", err)
	}

	return buf.Bytes(), nil
}
