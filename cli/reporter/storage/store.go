package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store/mqtt"
	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store/nats"
	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store/rabbitmq"
	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store/redis"
	"github.com/daniil11ru/traccar-report/cli/reporter/storage/store/tarantool_queue"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidStorage = errors.New("storage not found")
var ErrUnknownStorage = errors.New("storage isn't support yet")
var ErrUnknownFormat = errors.New("unknown message format")

const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

type Message = interface{ ToBytes() ([]byte, error) }

type Store interface {
	Connector
	Saver
}

// Saver интерфейс для публикации во внешние хранилища
type Saver interface {
	// Save публикация сообщения
	Save(Message) error
}

// Connector интерфейс для подключения внешних хранилищ
type Connector interface {
	// Init установка соединения с хранилищем
	Init(map[string]string) error

	// Close закрытие соединения с хранилищем
	Close() error
}

// Repository набор выходных хранилищ
type Repository struct {
	storages []namedSaver
	closers  []Connector
}

type namedSaver struct {
	name string
	Saver
}

// AddStore добавляет хранилище для публикации событий
func (r *Repository) AddStore(name string, s Saver) {
	r.storages = append(r.storages, namedSaver{name: name, Saver: s})
}

func (r *Repository) Len() int {
	return len(r.storages)
}

// Save публикует сообщение во все хранилища; сбой одного не мешает остальным
func (r *Repository) Save(m Message) error {
	var errs []error
	for _, store := range r.storages {
		if err := store.Save(m); err != nil {
			log.WithFields(log.Fields{"store": store.name, "err": err}).Error("Ошибка публикации события")
			errs = append(errs, fmt.Errorf("%s: %w", store.name, err))
		}
	}
	return errors.Join(errs...)
}

func newStore(name string) (Store, error) {
	switch name {
	case "rabbitmq":
		return &rabbitmq.Connector{}, nil
	case "nats":
		return &nats.Connector{}, nil
	case "tarantool_queue":
		return &tarantool_queue.Connector{}, nil
	case "redis":
		return &redis.Connector{}, nil
	case "mqtt":
		return &mqtt.Connector{}, nil
	default:
		return nil, ErrUnknownStorage
	}
}

// LoadStorages загружает хранилища из структуры конфига
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	names := make([]string, 0, len(storages))
	for name := range storages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		params := storages[name]

		format := params["format"]
		if format == "" {
			format = FormatJSON
		}
		if format != FormatJSON && format != FormatMsgpack {
			return fmt.Errorf("%s: %w: %s", name, ErrUnknownFormat, format)
		}

		db, err := newStore(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := db.Init(params); err != nil {
			return err
		}
		r.closers = append(r.closers, db)

		var saver Saver = db
		if format == FormatMsgpack {
			saver = msgpackSaver{saver: db}
		}
		r.AddStore(name, saver)

		log.WithFields(log.Fields{"store": name, "format": format}).Info("Хранилище событий подключено")
	}
	return nil
}

func (r *Repository) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewRepository создает пустой репозиторий
func NewRepository() *Repository {
	return &Repository{}
}
