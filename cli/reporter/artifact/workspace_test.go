package artifact

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestWriteAndCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w, err := NewWorkspace(dir)
	require.NoError(t, err)

	device := types.Device{ID: 3, Name: "truck"}
	htmlPath, err := w.Write(HTMLName(device, "2024-06-01"), []byte("<html></html>"))
	require.NoError(t, err)
	pngPath, err := w.Write(PNGName(device, "2024-06-01"), []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "temp_track_3_truck_2024-06-01.html"), htmlPath)
	assert.Equal(t, filepath.Join(dir, "track_report_3_truck_2024-06-01.png"), pngPath)
	assert.FileExists(t, htmlPath)
	assert.Equal(t, []string{htmlPath, pngPath}, w.Files())

	// файл, удаленный извне, не мешает очистке
	require.NoError(t, os.Remove(htmlPath))

	require.NoError(t, w.Cleanup())
	assert.NoFileExists(t, pngPath)
	assert.Empty(t, w.Files())
	assert.NoError(t, w.Cleanup())
}

func TestWriteRejectsPaths(t *testing.T) {
	w, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape.png", "a/b.png"} {
		_, err := w.Write(name, nil)
		assert.Error(t, err, name)
	}
	assert.Empty(t, w.Files())
}

func TestFileLabel(t *testing.T) {
	tests := []struct {
		device   types.Device
		expected string
	}{
		{types.Device{ID: 1, Name: "boat"}, "1_boat"},
		{types.Device{ID: 2, Name: "a/b:c"}, "2_a_b_c"},
		{types.Device{ID: 5, Name: "  "}, "5"},
		{types.Device{ID: 6, Name: "设备"}, "6_设备"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, fileLabel(tt.device))
		})
	}
}
