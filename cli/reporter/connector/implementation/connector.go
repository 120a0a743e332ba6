package implementation

import (
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Settings struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

type Connector struct {
	connection *sql.DB
	settings   Settings
	location   *time.Location
}

// NewConnector location задает пояс, в котором MySQL-драйвер интерпретирует DATETIME
func NewConnector(location *time.Location) *Connector {
	return &Connector{location: location}
}

func getOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Ключ '%s' не найден в конфигурации базы данных. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func (c *Connector) FillSettings(settings map[string]string) {
	c.settings.Driver = getOptionValue("driver", DriverMySQL, settings)

	defaultPort := "3306"
	if c.settings.Driver == DriverPostgres {
		defaultPort = "5432"
	}

	c.settings.Host = getOptionValue("host", "127.0.0.1", settings)
	c.settings.Port = getOptionValue("port", defaultPort, settings)
	c.settings.User = getOptionValue("user", "traccar", settings)
	c.settings.Password = getOptionValue("password", "123456", settings)
	c.settings.Database = getOptionValue("database", "traccar", settings)
	if c.settings.Driver == DriverPostgres {
		c.settings.SSLMode = getOptionValue("sslmode", "disable", settings)
	}
}

// DSN строка подключения для выбранного драйвера
func (c *Connector) DSN() (string, error) {
	switch c.settings.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = c.settings.User
		cfg.Passwd = c.settings.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.settings.Host, c.settings.Port)
		cfg.DBName = c.settings.Database
		cfg.ParseTime = true
		if c.location != nil {
			cfg.Loc = c.location
		}
		return cfg.FormatDSN(), nil
	case DriverPostgres:
		return fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
			c.settings.Database, c.settings.Host, c.settings.Port, c.settings.User, c.settings.Password, c.settings.SSLMode), nil
	default:
		return "", fmt.Errorf("неизвестный драйвер базы данных: %s", c.settings.Driver)
	}
}

func (c *Connector) Connect(settings map[string]string) error {
	var err error
	if settings == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	c.FillSettings(settings)

	dsn, err := c.DSN()
	if err != nil {
		return err
	}

	if c.connection, err = sql.Open(c.settings.Driver, dsn); err != nil {
		return fmt.Errorf("ошибка подключения к базе данных %s: %v", c.settings.Driver, err)
	}

	if err = c.connection.Ping(); err != nil {
		return fmt.Errorf("база данных %s недоступна: %v", c.settings.Driver, err)
	}
	return nil
}

func (c *Connector) GetConnection() *sql.DB {
	return c.connection
}

func (c *Connector) GetDriver() string {
	return c.settings.Driver
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
