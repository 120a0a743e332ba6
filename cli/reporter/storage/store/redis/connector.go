package redis

/*
Плагин для публикации событий в канал Redis.

Раздел настроек в конфиге:

host: "localhost"
port: "6379"
password: ""
db: "0"
channel: "traccar:reports"
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store"
	"github.com/go-redis/redis/v8"
)

const operationTimeout = 5 * time.Second

type Connector struct {
	client  *redis.Client
	channel string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	db, err := store.IntOptionValue("db", 0, cfg)
	if err != nil {
		return err
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", store.OptionValue("host", "localhost", cfg), store.OptionValue("port", "6379", cfg)),
		Password: cfg["password"],
		DB:       db,
	})
	c.channel = store.OptionValue("channel", "traccar:reports", cfg)

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err = c.client.Ping(ctx).Err(); err != nil {
		c.client.Close()
		return fmt.Errorf("Redis недоступен: %v", err)
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

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err = c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("не удалось отправить событие в Redis: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
