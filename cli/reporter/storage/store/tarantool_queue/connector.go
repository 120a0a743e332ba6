package tarantool_queue

/*
Плагин для публикации событий в Tarantool queue.

Раздел настроек в конфиге:

host: "localhost"
port: "3301"
user: "user"
password: "pass"
max_recons: "5"
timeout: "1"
reconnect: "1"
queue: "reports"
*/

import (
	"fmt"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store"
	"github.com/tarantool/go-tarantool"
	"github.com/tarantool/go-tarantool/queue"
)

type Connector struct {
	connection *tarantool.Connection
	queue      queue.Queue
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	conStr := fmt.Sprintf("%s:%s", store.OptionValue("host", "localhost", cfg), store.OptionValue("port", "3301", cfg))

	maxRecons, err := store.IntOptionValue("max_recons", 5, cfg)
	if err != nil {
		return err
	}
	timeout, err := store.IntOptionValue("timeout", 1, cfg)
	if err != nil {
		return err
	}
	reconnect, err := store.IntOptionValue("reconnect", 1, cfg)
	if err != nil {
		return err
	}
	opts := tarantool.Opts{
		Timeout:       time.Duration(timeout) * time.Second,
		Reconnect:     time.Duration(reconnect) * time.Second,
		MaxReconnects: uint(maxRecons),
		User:          cfg["user"],
		Pass:          cfg["password"],
	}

	c.connection, err = tarantool.Connect(conStr, opts)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к Tarantool: %v", err)
	}
	c.queue = queue.New(c.connection, store.OptionValue("queue", "reports", cfg))

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

	if _, err = c.queue.Put(data); err != nil {
		return fmt.Errorf("не удалось отправить событие в очередь: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
