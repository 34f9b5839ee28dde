package forms

import (
	"encoding/json"
	"fmt"
	"strings"

	"zaslon/internal/kv"
)

const templateKeyPrefix = "template:"

// Store — шаблоны во внешнем key-value сервисе.
// Ядро не знает, что за сервис; для него это просто get/set.
type Store struct {
	kv kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

func (s *Store) Save(t *Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.kv.Set(templateKeyPrefix+t.Name, string(b))
}

func (s *Store) Load(name string) (*Template, error) {
	raw, ok, err := s.kv.Get(templateKeyPrefix + name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	var t Template
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("template %q is corrupt: %w", name, err)
	}
	return &t, nil
}

func (s *Store) List() ([]string, error) {
	keys, err := s.kv.Keys(templateKeyPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, templateKeyPrefix))
	}
	return names, nil
}
