package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/daniil11ru/traccar-report/cli/reporter/config"
	"github.com/daniil11ru/traccar-report/cli/reporter/delivery"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

var ErrNoURL = errors.New("не указан адрес уведомлений")

// StatusError ответ сервера уведомлений с кодом, отличным от 200
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("сервер уведомлений вернул %d: %s", e.StatusCode, e.Body)
}

// Notifier загружает PNG отчета multipart-запросом
type Notifier struct {
	client *resty.Client
	url    string
	user   string
	from   string
}

func NewNotifier(conf config.Webhook) (*Notifier, error) {
	if conf.URL == "" {
		return nil, ErrNoURL
	}

	return &Notifier{
		client: resty.New().SetTimeout(conf.GetTimeout()),
		url:    conf.URL,
		user:   conf.User,
		from:   conf.From,
	}, nil
}

func (n *Notifier) Name() string {
	return "webhook"
}

func message(report delivery.Report) string {
	return fmt.Sprintf("Report for %s: %s", report.Device.Label(), filepath.Base(report.PNGPath))
}

func (n *Notifier) Deliver(ctx context.Context, report delivery.Report) error {
	if report.PNGPath == "" {
		return fmt.Errorf("нет PNG для отправки")
	}

	log.WithFields(log.Fields{
		"device_id": report.Device.ID,
		"url":       n.url,
		"file":      filepath.Base(report.PNGPath),
	}).Debug("Отправка уведомления")

	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"usr":  n.user,
			"from": n.from,
			"msg":  message(report),
		}).
		SetFile("file", report.PNGPath).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("не удалось отправить уведомление: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}

	log.WithFields(log.Fields{
		"device_id": report.Device.ID,
		"response":  strings.TrimSpace(resp.String()),
	}).Info("Уведомление отправлено")

	return nil
}
