package api

import (
	"fmt"
	"strings"

	"zaslon/internal/classify"
	"zaslon/internal/forms"
	"zaslon/internal/secure"
)

// classifyLevel — уровень из строки конфига; мусор превращается в internal.
func classifyLevel(raw string) classify.Level {
	l := classify.Level(strings.ToLower(strings.TrimSpace(raw)))
	if !classify.ValidLevel(l) {
		return classify.LevelInternal
	}
	return l
}

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды, которыми пользуемся в ответах
const (
	ErrRequired    = "required"
	ErrEnumInvalid = "enum_invalid"
	ErrNotFound    = "not_found"
	ErrBadRequest  = "bad_request"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

// checkAgainstTemplate — мягкая проверка записи по шаблону. Возвращает
// предупреждения, а не отказы: сабмит блокируют только аутентификация
// и restricted-классификация, это решает конвейер.
func checkAgainstTemplate(tmpl *forms.Template, record map[string]any) []FieldError {
	var warns []FieldError

	for _, f := range tmpl.Fields {
		v, present := record[f.Name]
		if f.Required && (!present || secure.Empty(v)) {
			warns = append(warns, ferr(ErrRequired, f.Name, "Field '"+f.Name+"' is required"))
			continue
		}
		if !present || len(f.Options) == 0 {
			continue
		}
		// select: значение должно быть из списка опций
		s := fmt.Sprintf("%v", v)
		found := false
		for _, opt := range f.Options {
			if strings.EqualFold(s, opt) {
				found = true
				break
			}
		}
		if !found {
			warns = append(warns, ferr(ErrEnumInvalid, f.Name, "Value for '"+f.Name+"' is not in options"))
		}
	}
	return warns
}
