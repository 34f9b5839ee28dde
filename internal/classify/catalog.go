package classify

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PatternSet — дополнение к встроенным паттернам из YAML-каталога.
// Встроенные паттерны убрать нельзя, только расширить.
type PatternSet struct {
	Sensitive    []string `yaml:"sensitive,omitempty"`
	Confidential []string `yaml:"confidential,omitempty"`
	Restricted   []string `yaml:"restricted,omitempty"`
}

func (a PatternSet) merge(b PatternSet) PatternSet {
	a.Sensitive = append(a.Sensitive, b.Sensitive...)
	a.Confidential = append(a.Confidential, b.Confidential...)
	a.Restricted = append(a.Restricted, b.Restricted...)
	return a
}

// LoadPatternCatalog читает все *.yaml/*.yml из каталога паттернов.
// Пустой или отсутствующий каталог — не ошибка (работаем на встроенных).
func LoadPatternCatalog(dir string) (PatternSet, error) {
	var result PatternSet

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return result, err
		}
		var set PatternSet
		if err := yaml.Unmarshal(data, &set); err != nil {
			return result, err
		}
		result = result.merge(set)
	}
	return result, nil
}
