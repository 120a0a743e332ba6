package main

import (
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/config"
	"github.com/daniil11ru/traccar-report/cli/reporter/delivery"
	"github.com/daniil11ru/traccar-report/cli/reporter/delivery/email"
	"github.com/daniil11ru/traccar-report/cli/reporter/delivery/webhook"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/render"
	"github.com/daniil11ru/traccar-report/cli/reporter/render/chrome"
	"github.com/daniil11ru/traccar-report/cli/reporter/render/leaflet"
	"github.com/daniil11ru/traccar-report/cli/reporter/render/raster"
	log "github.com/sirupsen/logrus"
)

func newComposer(settings config.Settings, location *time.Location) *compose.Composer {
	c := compose.NewComposer(settings.Encoding)
	c.Style = settings.Map.Path
	c.InitialZoom = settings.Map.InitialZoom
	c.Location = location
	return c
}

func newRenderer(settings config.Settings) render.Renderer {
	if settings.Render.Engine == "raster" {
		return &raster.Renderer{
			Width:   settings.Render.Width,
			Height:  settings.Render.Height,
			Padding: raster.DefaultPadding,
			Timeout: settings.Render.GetTimeout(),
		}
	}

	return &chrome.Renderer{
		Width:       settings.Render.Width,
		Height:      settings.Render.Height,
		SettleDelay: settings.Render.GetSettleDelay(),
		Timeout:     settings.Render.GetTimeout(),
		Proxy:       settings.Render.Proxy,
		ExecPath:    settings.Render.ChromePath,
	}
}

func leafletOptions(settings config.Settings) leaflet.Options {
	return leaflet.Options{TileURL: settings.Map.TileURL, Attribution: settings.Map.Attribution}
}

func newSinks(settings config.Settings) ([]delivery.Sink, error) {
	var sinks []delivery.Sink

	if settings.Email.Enabled {
		sender, err := email.NewSender(settings.Email)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sender)
	}
	if settings.Webhook.Enabled {
		notifier, err := webhook.NewNotifier(settings.Webhook)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notifier)
	}

	if len(sinks) == 0 {
		log.Warn("Каналы доставки не настроены, отчеты будут только сформированы")
	}
	return sinks, nil
}
