package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound запись не найдена или принадлежит другому пользователю.
	ErrNotFound = errors.New("not found")
	// ErrConflict код или алиас уже занят.
	ErrConflict = errors.New("already exists")
)

// ValidationError ошибки валидации по полям формы.
type ValidationError struct {
	Fields map[string]string
}

// Add добавляет ошибку поля; первая ошибка поля сохраняется.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty true, если ошибок нет.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
