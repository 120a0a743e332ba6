package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	log "github.com/sirupsen/logrus"
)

const DefaultDir = "/dev/shm/traccar_reports"

// Workspace каталог временных файлов одного отчета
type Workspace struct {
	dir     string
	mu      sync.Mutex
	written []string
}

func NewWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог %s: %w", dir, err)
	}

	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) Write(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("некорректное имя файла %q", name)
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("не удалось записать %s: %w", path, err)
	}

	w.mu.Lock()
	w.written = append(w.written, path)
	w.mu.Unlock()

	return path, nil
}

func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, len(w.written))
	copy(files, w.written)
	return files
}

// Cleanup удаляет все записанные файлы; уже удаленные не считаются ошибкой
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	files := w.written
	w.written = nil
	w.mu.Unlock()

	var errs []error
	for _, path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		log.WithField("path", path).Debug("Временный файл удален")
	}

	return errors.Join(errs...)
}

func HTMLName(device types.Device, date string) string {
	return fmt.Sprintf("temp_track_%s_%s.html", fileLabel(device), date)
}

func PNGName(device types.Device, date string) string {
	return fmt.Sprintf("track_report_%s_%s.png", fileLabel(device), date)
}

func fileLabel(device types.Device) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		if r < ' ' {
			return '_'
		}
		return r
	}, strings.TrimSpace(device.Name))

	if name == "" {
		return fmt.Sprintf("%d", device.ID)
	}
	return fmt.Sprintf("%d_%s", device.ID, name)
}
