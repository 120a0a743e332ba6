package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/source"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type TrackRepository interface {
	GetDevice(id int64) (types.Device, error)
	GetTrack(device types.Device, start, end time.Time) (types.Track, error)
}

type ReportRunner interface {
	Run(ctx context.Context, window domain.ReportWindow) (domain.Summary, error)
}

type Handler struct {
	Repository TrackRepository
	Composer   *compose.Composer
	Reports    ReportRunner
	Location   *time.Location
	Events     http.Handler
}

func NewHandler(repository TrackRepository, composer *compose.Composer, reports ReportRunner, location *time.Location) *Handler {
	return &Handler{
		Repository: repository,
		Composer:   composer,
		Reports:    reports,
		Location:   location,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// window пустая дата означает вчерашний день; некорректная отклоняется
func (h *Handler) window(c *gin.Context) (domain.ReportWindow, bool) {
	date := c.Query("date")
	if date == "" {
		return domain.Yesterday(h.Location), true
	}

	window, err := domain.ParseReportWindow(date, h.Location)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return domain.ReportWindow{}, false
	}
	return window, true
}

func (h *Handler) document(c *gin.Context) (compose.MapDocument, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный ID устройства"})
		return compose.MapDocument{}, false
	}
	window, ok := h.window(c)
	if !ok {
		return compose.MapDocument{}, false
	}

	device, err := h.Repository.GetDevice(id)
	if err != nil {
		if errors.Is(err, source.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return compose.MapDocument{}, false
	}

	track, err := h.Repository.GetTrack(device, window.Start, window.End)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return compose.MapDocument{}, false
	}

	doc, ok := h.Composer.Compose(track)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "нет позиций за " + window.Date})
		return compose.MapDocument{}, false
	}
	doc.Title = device.Label() + " (" + window.Date + ")"

	return doc, true
}

func (h *Handler) GetTrack(c *gin.Context) {
	doc, ok := h.document(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) GetGeoJSON(c *gin.Context) {
	doc, ok := h.document(c)
	if !ok {
		return
	}

	data, err := doc.FeatureCollection().MarshalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

func (h *Handler) RunReports(c *gin.Context) {
	window, ok := h.window(c)
	if !ok {
		return
	}

	log.WithField("date", window.Date).Info("Запуск формирования отчетов через API")
	summary, err := h.Reports.Run(c.Request.Context(), window)
	if errors.Is(err, domain.ErrBatchRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
