package chrome

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	log "github.com/sirupsen/logrus"
)

var ErrNoDocument = errors.New("не указан HTML-документ для снимка")

// Renderer снимает экран headless-браузера с открытой Leaflet-картой
type Renderer struct {
	Width       int
	Height      int
	SettleDelay time.Duration
	Timeout     time.Duration
	Proxy       string
	ExecPath    string
}

func (r *Renderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(r.Width, r.Height),
	)
	if r.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(r.Proxy))
	}
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	return opts
}

func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (r *Renderer) Render(ctx context.Context, doc compose.MapDocument, htmlPath string) ([]byte, error) {
	if htmlPath == "" {
		return nil, ErrNoDocument
	}
	target, err := fileURL(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("некорректный путь к HTML-документу: %v", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	log.WithFields(log.Fields{"title": doc.Title, "url": target}).Debug("Снимок карты")

	var screenshot []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.Sleep(r.SettleDelay),
		chromedp.CaptureScreenshot(&screenshot),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось сделать снимок карты: %v", err)
	}

	return screenshot, nil
}
