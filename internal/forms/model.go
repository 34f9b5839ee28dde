package forms

import (
	"fmt"
	"strings"
)

// FieldType — тип поля финализированной формы (то, что отдаёт дизайнер)
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

// Field описывает одно поле формы. Ядро читает дескрипторы, но не меняет их.
type Field struct {
	Name     string    `yaml:"name" json:"name"`
	Label    string    `yaml:"label" json:"label"`
	Type     FieldType `yaml:"type" json:"type"`
	Required bool      `yaml:"required,omitempty" json:"required"`
	Options  []string  `yaml:"options,omitempty" json:"options,omitempty"`
}

// Template — форма целиком: имя, целевая таблица, упорядоченный список полей
type Template struct {
	Name   string  `yaml:"name" json:"name"`
	Table  string  `yaml:"table" json:"table"`
	Fields []Field `yaml:"fields" json:"fields"`
}

var knownTypes = map[FieldType]struct{}{
	FieldText: {}, FieldTextarea: {}, FieldNumber: {}, FieldDate: {},
	FieldEmail: {}, FieldPhone: {}, FieldSelect: {}, FieldCheckbox: {},
}

// Validate проверяет базовую целостность шаблона: имена уникальны, типы известны.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template has no name")
	}
	if strings.TrimSpace(t.Table) == "" {
		return fmt.Errorf("template %q has no target table", t.Name)
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("template %q has no fields", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		name := strings.ToLower(strings.TrimSpace(f.Name))
		if name == "" {
			return fmt.Errorf("template %q: field with empty name", t.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("template %q: duplicate field %q", t.Name, f.Name)
		}
		seen[name] = struct{}{}
		if f.Type != "" {
			if _, ok := knownTypes[f.Type]; !ok {
				return fmt.Errorf("template %q: field %q has unknown type %q", t.Name, f.Name, f.Type)
			}
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("template %q: select field %q has no options", t.Name, f.Name)
		}
	}
	return nil
}

// FieldByName — поиск без учёта регистра; дескрипторы читаются как есть.
func (t *Template) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}
