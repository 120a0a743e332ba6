package mqtt

/*
Плагин для публикации событий в MQTT-брокер.

Раздел настроек в конфиге:

host: "localhost"
port: "1883"
client_id: "traccar-report"
user: ""
password: ""
topic: "traccar/reports"
qos: "1"
retained: "false"
*/

import (
	"fmt"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store"
	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
)

type Connector struct {
	client   paho.Client
	topic    string
	qos      byte
	retained bool
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	qos, err := store.IntOptionValue("qos", 1, cfg)
	if err != nil {
		return err
	}
	if qos < 0 || qos > 2 {
		return fmt.Errorf("некорректный qos: %d", qos)
	}
	c.qos = byte(qos)
	c.retained = cfg["retained"] == "true"
	c.topic = store.OptionValue("topic", "traccar/reports", cfg)

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", store.OptionValue("host", "localhost", cfg), store.OptionValue("port", "1883", cfg)))
	opts.SetClientID(store.OptionValue("client_id", "traccar-report", cfg))
	opts.SetUsername(cfg["user"])
	opts.SetPassword(cfg["password"])
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.WithField("err", err).Warn("Соединение с MQTT потеряно")
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("превышено время подключения к MQTT")
	}
	if err = token.Error(); err != nil {
		return fmt.Errorf("ошибка подключения к MQTT: %v", err)
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

	token := c.client.Publish(c.topic, c.qos, c.retained, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("превышено время публикации в MQTT")
	}
	if err = token.Error(); err != nil {
		return fmt.Errorf("не удалось отправить событие в MQTT: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.client != nil {
		c.client.Disconnect(250)
	}
	return nil
}
