package store

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// OptionValue значение из раздела настроек хранилища или значение по умолчанию
func OptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Ключ '%s' не найден в конфигурации хранилища. Используется значение по умолчанию '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func IntOptionValue(optionName string, optionDefaultValue int, settings map[string]string) (int, error) {
	raw := OptionValue(optionName, strconv.Itoa(optionDefaultValue), settings)
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("не удалось получить %s: %v", optionName, err)
	}

	return value, nil
}

func ContentType(settings map[string]string) string {
	if settings["format"] == "msgpack" {
		return "application/msgpack"
	}
	return "application/json"
}
