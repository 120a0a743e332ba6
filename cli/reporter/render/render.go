package render

import (
	"context"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
)

// Renderer превращает описание карты в PNG.
// htmlPath путь к уже сохраненному Leaflet-документу той же карты; не всем движкам он нужен.
type Renderer interface {
	Render(ctx context.Context, doc compose.MapDocument, htmlPath string) ([]byte, error)
}

type Func func(ctx context.Context, doc compose.MapDocument, htmlPath string) ([]byte, error)

func (f Func) Render(ctx context.Context, doc compose.MapDocument, htmlPath string) ([]byte, error) {
	return f(ctx, doc, htmlPath)
}
