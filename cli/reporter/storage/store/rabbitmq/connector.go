package rabbitmq

/*
Плагин для публикации событий в RabbitMQ.

Раздел настроек в конфиге:

host: "localhost"
port: "5672"
user: "guest"
password: "guest"
exchange: "reports"
exchange_type: "topic"
key: "report.daily"
*/

import (
	"fmt"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store"
	"github.com/streadway/amqp"
)

type Connector struct {
	connection  *amqp.Connection
	channel     *amqp.Channel
	exchange    string
	key         string
	contentType string
}

func (c *Connector) Init(cfg map[string]string) error {
	var err error
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	conStr := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		store.OptionValue("user", "guest", cfg),
		store.OptionValue("password", "guest", cfg),
		store.OptionValue("host", "localhost", cfg),
		store.OptionValue("port", "5672", cfg),
	)
	if c.connection, err = amqp.Dial(conStr); err != nil {
		return fmt.Errorf("ошибка установки соединения RabbitMQ: %v", err)
	}

	if c.channel, err = c.connection.Channel(); err != nil {
		c.connection.Close()
		return fmt.Errorf("ошибка открытия канала RabbitMQ: %v", err)
	}

	c.exchange = store.OptionValue("exchange", "reports", cfg)
	c.key = store.OptionValue("key", "report.daily", cfg)
	c.contentType = store.ContentType(cfg)

	exchangeType := store.OptionValue("exchange_type", amqp.ExchangeTopic, cfg)
	if err = c.channel.ExchangeDeclare(c.exchange, exchangeType, true, false, false, false, nil); err != nil {
		c.Close()
		return fmt.Errorf("не удалось создать точку обмена %s: %v", c.exchange, err)
	}

	return nil
}

func (c *Connector) Save(msg interface{ ToBytes() ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на событие")
	}

	body, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %v", err)
	}

	err = c.channel.Publish(c.exchange, c.key, false, false, amqp.Publishing{
		ContentType:  c.contentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("не удалось отправить событие в RabbitMQ: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.connection != nil {
		return c.connection.Close()
	}
	return nil
}
