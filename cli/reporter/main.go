package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/api"
	"github.com/daniil11ru/traccar-report/cli/reporter/config"
	"github.com/daniil11ru/traccar-report/cli/reporter/connector/implementation"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain"
	"github.com/daniil11ru/traccar-report/cli/reporter/repository"
	"github.com/daniil11ru/traccar-report/cli/reporter/source/traccar"
	"github.com/daniil11ru/traccar-report/cli/reporter/storage"
	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store/websocket"
	"github.com/robfig/cron/v3"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configFilePath := ""
	date := ""
	once := false
	flag.StringVar(&configFilePath, "c", "", "путь до конфига")
	flag.StringVar(&date, "date", "", "отчетная дата YYYY-MM-DD, по умолчанию вчера")
	flag.BoolVar(&once, "once", false, "сформировать отчеты один раз и завершиться")
	flag.Parse()

	settings, err := config.New(configFilePath)
	if err != nil {
		log.Fatalf("Не удалось получить конфиг: %v", err)
		return
	}

	configureLogging(settings)

	location, err := settings.GetLocation()
	if err != nil {
		log.Fatalf("Некорректный часовой пояс: %v", err)
		return
	}

	conn := implementation.NewConnector(location)
	if err := conn.Connect(settings.Database); err != nil {
		log.Fatalf("Не удалось подключиться к базе Traccar: %v", err)
		return
	}
	defer conn.Close()

	traccarRepository := &repository.Traccar{Source: traccar.NewSource(conn)}

	sinks, err := newSinks(settings)
	if err != nil {
		log.Fatalf("Не удалось настроить доставку: %v", err)
		return
	}

	events := storage.NewRepository()
	if len(settings.Events) > 0 {
		if err := events.LoadStorages(settings.Events); err != nil {
			log.Fatalf("Не удалось подключить хранилища событий: %v", err)
			return
		}
	}
	defer events.Close()

	oneShot := once || date != ""

	var hub *websocket.Hub
	if settings.ApiPort > 0 && !oneShot {
		hub = websocket.NewHub()
		events.AddStore("websocket", hub)
		defer hub.Close()
	}

	pipeline := &domain.GenerateReports{
		Repository: traccarRepository,
		Composer:   newComposer(settings, location),
		Renderer:   newRenderer(settings),
		Sinks:      sinks,
		OutputDir:  settings.OutputDir,
		Workers:    settings.Workers,
		Leaflet:    leafletOptions(settings),
	}
	if events.Len() > 0 {
		asyncEvents := storage.NewAsyncRepository(events, 64, 2)
		defer asyncEvents.Close()
		pipeline.Events = asyncEvents
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if oneShot {
		runBatch(ctx, pipeline, domain.NewReportWindow(date, location))
		return
	}

	c := cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	_, err = c.AddFunc(settings.GetSchedule(), func() {
		runBatch(ctx, pipeline, domain.Yesterday(location))
	})
	if err != nil {
		log.Fatalf("Некорректное расписание '%s': %v", settings.GetSchedule(), err)
		return
	}
	c.Start()
	log.Infof("Запланировано ежедневное формирование отчетов: %s", settings.GetSchedule())

	var controller *api.Controller
	if settings.ApiPort > 0 {
		handler := api.NewHandler(traccarRepository, pipeline.Composer, pipeline, location)
		if hub != nil {
			handler.Events = hub
		}
		controller = api.NewController(handler, api.Auth{Keys: settings.ApiKeys, JWTSecret: settings.ApiJWTSecret}, settings.ApiPort)
		go func() {
			log.Infof("Запуск API на порту %d", settings.ApiPort)
			if err := controller.Run(); err != nil {
				log.Error(err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info("Завершение работы")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if controller != nil {
		if err := controller.Shutdown(shutdownCtx); err != nil {
			log.WithField("err", err).Warn("API остановлено с ошибкой")
		}
	}
	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("Формирование отчетов не завершилось за отведенное время")
	}
}

func runBatch(ctx context.Context, pipeline *domain.GenerateReports, window domain.ReportWindow) {
	_, err := pipeline.Run(ctx, window)
	if errors.Is(err, domain.ErrBatchRunning) {
		log.WithField("date", window.Date).Warn("Предыдущее формирование отчетов еще не завершено, запуск пропущен")
		return
	}
	if err != nil {
		log.WithFields(log.Fields{"date": window.Date, "err": err}).Error("Отчеты не сформированы")
	}
}

// cronLogger направляет сообщения cron в logrus
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.WithFields(cronFields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.WithFields(cronFields(keysAndValues)).WithField("err", err).Error(msg)
}

func cronFields(keysAndValues []interface{}) log.Fields {
	fields := log.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

func configureLogging(settings config.Settings) {
	log.SetLevel(settings.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if settings.LogFilePath != "" {
		logDir := filepath.Dir(settings.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Не получилось создать директорию для логов: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   settings.LogFilePath,
			MaxSize:    100,
			MaxBackups: 366,
			MaxAge:     settings.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
			log.TraceLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}
