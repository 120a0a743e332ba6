package domain

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var now = time.Now // For mocking time.Now() in tests

const DateLayout = "2006-01-02"

// ReportWindow отчетные сутки [Start, End) в часовом поясе отчета
type ReportWindow struct {
	Start time.Time
	End   time.Time
	Date  string
}

func windowOf(day time.Time) ReportWindow {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return ReportWindow{
		Start: start,
		End:   start.AddDate(0, 0, 1),
		Date:  start.Format(DateLayout),
	}
}

func Yesterday(loc *time.Location) ReportWindow {
	if loc == nil {
		loc = time.Local
	}
	return windowOf(now().In(loc).AddDate(0, 0, -1))
}

// ParseReportWindow строгий разбор даты YYYY-MM-DD
func ParseReportWindow(date string, loc *time.Location) (ReportWindow, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return ReportWindow{}, fmt.Errorf("некорректная дата %q, ожидается YYYY-MM-DD", date)
	}
	return windowOf(day), nil
}

// NewReportWindow пустая дата означает вчерашний день; некорректная тоже, с записью в журнал
func NewReportWindow(date string, loc *time.Location) ReportWindow {
	if date == "" {
		return Yesterday(loc)
	}

	window, err := ParseReportWindow(date, loc)
	if err != nil {
		log.WithField("err", err).Error("Используется вчерашний день")
		return Yesterday(loc)
	}
	return window
}
