package config

/*
Описание конфигурационного файла
*/

import (
	"errors"
	"os"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/encoding"
	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

var ErrNoConfigPath = errors.New("не задан путь до конфига")

const (
	defaultOutputDir      = "/dev/shm/traccar_reports"
	defaultSchedule       = "0 1 * * *"
	defaultTimeoutSeconds = 300
	defaultSettleSeconds  = 15
	defaultWidth          = 1920
	defaultHeight         = 1080
	defaultSubject        = "Traccar 设备轨迹报告 - {{.Device}} ({{.Date}})"
	defaultWebhookFrom    = "Traccar"
)

type Map struct {
	InitialZoom int               `yaml:"initial_zoom"`
	Path        compose.PathStyle `yaml:"path"`
	TileURL     string            `yaml:"tile_url"`
	Attribution string            `yaml:"attribution"`
}

type Render struct {
	// Engine "chrome" (Leaflet + headless Chromium) или "raster" (встроенная отрисовка)
	Engine        string `yaml:"engine"`
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	SettleSeconds int    `yaml:"settle_seconds"`
	TimeoutSec    int    `yaml:"timeout"`
	Proxy         string `yaml:"proxy"`
	ChromePath    string `yaml:"chrome_path"`
}

func (r Render) GetSettleDelay() time.Duration {
	return time.Duration(r.SettleSeconds) * time.Second
}

func (r Render) GetTimeout() time.Duration {
	return time.Duration(r.TimeoutSec) * time.Second
}

type Email struct {
	Enabled    bool     `yaml:"enabled"`
	Host       string   `yaml:"smtp_server"`
	Port       int      `yaml:"smtp_port"`
	Username   string   `yaml:"smtp_username"`
	Password   string   `yaml:"smtp_password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
	Subject    string   `yaml:"subject"`
}

type Webhook struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	User       string `yaml:"user"`
	From       string `yaml:"from"`
	TimeoutSec int    `yaml:"timeout"`
}

func (w Webhook) GetTimeout() time.Duration {
	return time.Duration(w.TimeoutSec) * time.Second
}

type Settings struct {
	LogLevel      string                       `yaml:"log_level"`
	LogFilePath   string                       `yaml:"log_file_path"`
	LogMaxAgeDays int                          `yaml:"log_max_age_days"`
	Timezone      string                       `yaml:"timezone"`
	OutputDir     string                       `yaml:"output_dir"`
	Workers       int                          `yaml:"workers"`
	Schedule      string                       `yaml:"schedule"`
	ApiPort       int32                        `yaml:"api_port"`
	ApiKeys       []string                     `yaml:"api_keys"`
	ApiJWTSecret  string                       `yaml:"api_jwt_secret"`
	Database      map[string]string            `yaml:"database"`
	Encoding      encoding.Palette             `yaml:"encoding"`
	Map           Map                          `yaml:"map"`
	Render        Render                       `yaml:"render"`
	Email         Email                        `yaml:"email"`
	Webhook       Webhook                      `yaml:"webhook"`
	Events        map[string]map[string]string `yaml:"events"`
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

// GetLocation часовой пояс отчетного дня; пустое значение - локальный пояс процесса
func (s *Settings) GetLocation() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func New(confPath string) (Settings, error) {
	c := Settings{}
	if confPath == "" {
		return c, ErrNoConfigPath
	}

	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}

	// поля, не заданные в файле, остаются значениями по умолчанию
	c.Encoding = encoding.DefaultPalette()
	c.Map.Path = compose.DefaultPathStyle()
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return c, err
	}

	c.applyDefaults()

	return c, nil
}

func (c *Settings) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}

	if err := c.Encoding.Validate(); err != nil {
		log.Errorf("Некорректные параметры кодирования (%v). Используются значения по умолчанию.", err)
		c.Encoding = encoding.DefaultPalette()
	}

	if c.Map.InitialZoom <= 0 {
		c.Map.InitialZoom = compose.DefaultInitialZoom
	}
	if c.Map.Path.Color == "" {
		c.Map.Path.Color = compose.DefaultPathStyle().Color
	}
	if c.Map.Path.Weight <= 0 {
		c.Map.Path.Weight = compose.DefaultPathStyle().Weight
	}
	if c.Map.Path.Opacity <= 0 || c.Map.Path.Opacity > 1 {
		c.Map.Path.Opacity = compose.DefaultPathStyle().Opacity
	}

	switch c.Render.Engine {
	case "":
		c.Render.Engine = "chrome"
	case "chrome", "raster":
	default:
		log.Errorf("Неизвестный движок отрисовки '%s'. Используется 'chrome'.", c.Render.Engine)
		c.Render.Engine = "chrome"
	}
	if c.Render.Width <= 0 {
		c.Render.Width = defaultWidth
	}
	if c.Render.Height <= 0 {
		c.Render.Height = defaultHeight
	}
	if c.Render.SettleSeconds <= 0 {
		c.Render.SettleSeconds = defaultSettleSeconds
	}
	if c.Render.TimeoutSec <= 0 {
		c.Render.TimeoutSec = defaultTimeoutSeconds
	}

	if c.Email.Port == 0 {
		c.Email.Port = 25
	}
	if c.Email.From == "" {
		c.Email.From = c.Email.Username
	}
	if c.Email.Subject == "" {
		c.Email.Subject = defaultSubject
	}

	if c.Webhook.From == "" {
		c.Webhook.From = defaultWebhookFrom
	}
	if c.Webhook.TimeoutSec <= 0 {
		c.Webhook.TimeoutSec = defaultTimeoutSeconds
	}

	if _, err := c.GetLocation(); err != nil {
		log.Errorf("Не удалось загрузить часовой пояс '%s' (%v). Используется локальный пояс.", c.Timezone, err)
		c.Timezone = ""
	}
}

// GetSchedule cron-выражение ежедневного запуска
func (s *Settings) GetSchedule() string {
	if s.Schedule == "" {
		return defaultSchedule
	}
	return s.Schedule
}
