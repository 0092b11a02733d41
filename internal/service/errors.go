package service

import "errors"

var (
	// ErrProviderUnavailable календарь не ответил (сеть, авторизация, квота).
	// Попытку целиком можно повторить позже.
	ErrProviderUnavailable = errors.New("calendar provider unavailable")

	// ErrInvalidWindow окно проверки пустое или перевёрнутое
	ErrInvalidWindow = errors.New("end time must be after start time")

	// ErrCallNotFound звонок с таким call_id не найден
	ErrCallNotFound = errors.New("call not found")

	// ErrUnsupportedLanguage язык разговора, для которого нет фраз
	ErrUnsupportedLanguage = errors.New("unsupported language")

	ErrEmptyCallerName = errors.New("caller name is empty")
)
