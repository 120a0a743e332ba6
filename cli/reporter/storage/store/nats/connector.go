package nats

/*
Плагин для публикации событий в NATS.

Раздел настроек в конфиге:

url: "nats://localhost:4222"
subject: "traccar.reports"
*/

import (
	"fmt"

	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store"
	"github.com/nats-io/nats.go"
)

type Connector struct {
	connection *nats.Conn
	subject    string
}

func (c *Connector) Init(cfg map[string]string) error {
	var err error
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	url := store.OptionValue("url", nats.DefaultURL, cfg)
	c.subject = store.OptionValue("subject", "traccar.reports", cfg)

	if c.connection, err = nats.Connect(url, nats.Name("traccar-report")); err != nil {
		return fmt.Errorf("ошибка подключения к NATS: %v", err)
	}
	return nil
}

func (c *Connector) Save(msg interface{ ToBytes() ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на событие")
	}

	data, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %v", err)
	}

	if err = c.connection.Publish(c.subject, data); err != nil {
		return fmt.Errorf("не удалось отправить событие в NATS: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Drain()
}
