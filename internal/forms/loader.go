package forms

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTemplate читает один YAML-файл шаблона формы.
func LoadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// имя шаблона — из поля name или из имени файла
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &t, nil
}

// LoadAllTemplates обходит каталог и собирает все *.yaml/*.yml шаблоны.
// Ключ результата — имя шаблона; дубликаты считаем ошибкой конфигурации.
func LoadAllTemplates(root string) (map[string]*Template, error) {
	result := make(map[string]*Template)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}
		t, err := LoadTemplate(path)
		if err != nil {
			return err
		}
		if _, exists := result[t.Name]; exists {
			return fmt.Errorf("duplicate template %q (file: %s)", t.Name, path)
		}
		result[t.Name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
