package storage

import "fmt"

type msgpackMessage interface {
	ToMsgpack() ([]byte, error)
}

type rawMessage []byte

func (m rawMessage) ToBytes() ([]byte, error) {
	return m, nil
}

// msgpackSaver перекодирует сообщение в msgpack перед передачей хранилищу
type msgpackSaver struct {
	saver Saver
}

func (s msgpackSaver) Save(m Message) error {
	packable, ok := m.(msgpackMessage)
	if !ok {
		return fmt.Errorf("сообщение %T не поддерживает msgpack", m)
	}

	data, err := packable.ToMsgpack()
	if err != nil {
		return fmt.Errorf("ошибка сериализации msgpack: %v", err)
	}

	return s.saver.Save(rawMessage(data))
}
