package models

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// ErrRemoteUnavailable - сеть, таймаут или 5xx. Временная ошибка, включает офлайн-режим.
	ErrRemoteUnavailable = errors.ConstError("remote store unavailable")

	// ErrRemoteRejected - ответ 4xx: некорректный запрос или запись не найдена.
	ErrRemoteRejected = errors.ConstError("remote store rejected request")

	// ErrStorageUnavailable - локальное хранилище недоступно (квота, отключено).
	ErrStorageUnavailable = errors.ConstError("local storage unavailable")

	// ErrValidation - черновик отклонен до сохранения. Единственная ошибка, видимая пользователю.
	ErrValidation = errors.ConstError("validation failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
