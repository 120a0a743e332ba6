package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daniil11ru/traccar-report/cli/reporter/config"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/encoding"
	"github.com/daniil11ru/traccar-report/cli/reporter/render/leaflet"
	"github.com/daniil11ru/traccar-report/cli/reporter/render/raster"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	"github.com/daniil11ru/traccar-report/cli/track-render/input"
	log "github.com/sirupsen/logrus"
)

/*
Track renderer.

Util draws a track from a JSON or NMEA file without Traccar database.

Usage:
  -in string
    	Track file (require)
  -format string
    	json or nmea, by default guessed from extension
  -out string
    	PNG file (require)
  -html string
    	Leaflet HTML page, optional
  -title string
    	Map title
  -width int
    	Image width (default 1920)
  -height int
    	Image height (default 1080)
  -c string
    	Reporter config to take encoding and map settings from

Example

```
./track-render -in trip.nmea -out trip.png -html trip.html -title "Boat 7"
```
*/

func readFixes(path, format string) ([]types.Fix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл трека: %v", err)
	}
	defer f.Close()

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	switch format {
	case "json":
		return input.ReadJSON(f)
	case "nmea", "txt", "log":
		return input.ReadNMEA(f)
	default:
		return nil, fmt.Errorf("неизвестный формат трека: %s", format)
	}
}

func main() {
	in := ""
	format := ""
	out := ""
	htmlOut := ""
	title := ""
	width := 0
	height := 0
	confPath := ""

	flag.StringVar(&in, "in", "", "Файл трека (обязательно)")
	flag.StringVar(&format, "format", "", "Формат трека: json или nmea; по умолчанию по расширению")
	flag.StringVar(&out, "out", "", "PNG файл (обязательно)")
	flag.StringVar(&htmlOut, "html", "", "HTML страница Leaflet")
	flag.StringVar(&title, "title", "", "Заголовок карты")
	flag.IntVar(&width, "width", 1920, "Ширина изображения")
	flag.IntVar(&height, "height", 1080, "Высота изображения")
	flag.StringVar(&confPath, "c", "", "Конфиг reporter для параметров кодирования и карты")
	flag.Parse()

	if in == "" || out == "" {
		fmt.Println("Не заданы обязательные параметры -in и -out")
		flag.Usage()
		os.Exit(1)
	}

	palette := encoding.DefaultPalette()
	style := compose.DefaultPathStyle()
	opts := leaflet.Options{}
	if confPath != "" {
		settings, err := config.New(confPath)
		if err != nil {
			log.Fatalf("Ошибка загрузки конфига: %v", err)
		}
		palette = settings.Encoding
		style = settings.Map.Path
		opts = leaflet.Options{TileURL: settings.Map.TileURL, Attribution: settings.Map.Attribution}
	}

	fixes, err := readFixes(in, format)
	if err != nil {
		log.Fatal(err)
	}
	sort.SliceStable(fixes, func(i, j int) bool { return fixes[i].Timestamp.Before(fixes[j].Timestamp) })

	composer := compose.NewComposer(palette)
	composer.Style = style

	doc, ok := composer.Compose(types.Track{Device: types.Device{Name: title}, Fixes: fixes})
	if !ok {
		fmt.Println("В файле нет ни одной отметки")
		os.Exit(1)
	}
	if title != "" {
		doc.Title = title
	}

	renderer := &raster.Renderer{Width: width, Height: height, Padding: raster.DefaultPadding}
	png, err := renderer.Render(context.Background(), doc, "")
	if err != nil {
		log.Fatalf("Ошибка отрисовки: %v", err)
	}
	if err := os.WriteFile(out, png, 0644); err != nil {
		log.Fatalf("Ошибка записи PNG: %v", err)
	}

	if htmlOut != "" {
		page, err := leaflet.Document(doc, doc.Title, opts)
		if err != nil {
			log.Fatalf("Ошибка формирования HTML: %v", err)
		}
		if err := os.WriteFile(htmlOut, page, 0644); err != nil {
			log.Fatalf("Ошибка записи HTML: %v", err)
		}
	}

	log.WithFields(log.Fields{"fixes": len(fixes), "png": out}).Info("Трек отрисован")
}
