package apperr

import (
	"errors"
	"fmt"
)

// Классы ошибок ядра. Снаружи матчим через errors.Is, внутри заворачиваем
// fmt.Errorf("...: %w", Err*).
var (
	ErrValidation  = errors.New("validation error")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrNotFound    = errors.New("not found")
	ErrExternal    = errors.New("external service error")
	ErrTransientIO = errors.New("transient io error")
)

func Validationf(format string, args ...any) error {
	return wrapf(ErrValidation, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return wrapf(ErrForbidden, format, args...)
}

func Conflictf(format string, args ...any) error {
	return wrapf(ErrConflict, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return wrapf(ErrNotFound, format, args...)
}

func Externalf(format string, args ...any) error {
	return wrapf(ErrExternal, format, args...)
}

func TransientIOf(format string, args ...any) error {
	return wrapf(ErrTransientIO, format, args...)
}

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, kind)...)
}
