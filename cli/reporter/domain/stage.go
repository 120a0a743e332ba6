package domain

import "fmt"

type Stage string

const (
	StageFetch   Stage = "fetch"
	StageRender  Stage = "render"
	StageEmail   Stage = "email"
	StageWebhook Stage = "webhook"
	StagePublish Stage = "publish"
	StageCleanup Stage = "cleanup"
)

// StageError сбой внешнего взаимодействия при обработке устройства
type StageError struct {
	DeviceID int64
	Stage    Stage
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("устройство %d, этап %s: %v", e.DeviceID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
