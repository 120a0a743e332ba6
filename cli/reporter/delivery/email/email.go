package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/daniil11ru/traccar-report/cli/reporter/config"
	"github.com/daniil11ru/traccar-report/cli/reporter/delivery"
	log "github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("не указаны получатели отчета")

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender отправляет PNG и HTML отчета письмом
type Sender struct {
	dialer     Dialer
	from       string
	recipients []string
	subject    *template.Template
}

func NewSender(conf config.Email) (*Sender, error) {
	return NewSenderWithDialer(conf, gomail.NewDialer(conf.Host, conf.Port, conf.Username, conf.Password))
}

func NewSenderWithDialer(conf config.Email, dialer Dialer) (*Sender, error) {
	if len(conf.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	subject, err := template.New("subject").Parse(conf.Subject)
	if err != nil {
		return nil, fmt.Errorf("некорректный шаблон темы письма: %v", err)
	}

	return &Sender{
		dialer:     dialer,
		from:       conf.From,
		recipients: conf.Recipients,
		subject:    subject,
	}, nil
}

func (s *Sender) Name() string {
	return "email"
}

func (s *Sender) Subject(report delivery.Report) (string, error) {
	var buf bytes.Buffer
	err := s.subject.Execute(&buf, struct {
		Device string
		Date   string
	}{Device: report.Device.Label(), Date: report.Date})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func body(report delivery.Report) string {
	return fmt.Sprintf(
		"附件是设备 '%s' 在 %s 的轨迹报告。\n\n"+
			"1. PNG 文件可直接预览。\n"+
			"2. HTML 文件包含完整的交互式地图，请下载后用浏览器打开。\n\n"+
			"Points: %d\nDistance: %.1f km\n",
		report.Device.Label(), report.Date, report.Markers, report.DistanceKm)
}

func (s *Sender) Message(report delivery.Report) (*gomail.Message, error) {
	subject, err := s.Subject(report)
	if err != nil {
		return nil, fmt.Errorf("не удалось сформировать тему письма: %v", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body(report))
	for _, path := range []string{report.PNGPath, report.HTMLPath} {
		if path != "" {
			m.Attach(path)
		}
	}

	return m, nil
}

func (s *Sender) Deliver(ctx context.Context, report delivery.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.Message(report)
	if err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("не удалось отправить письмо: %w", err)
	}

	log.WithFields(log.Fields{
		"device_id":  report.Device.ID,
		"recipients": len(s.recipients),
	}).Info("Отчет отправлен по почте")

	return nil
}
