package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Level — трёхуровневая классификация записи. Порядок: internal < confidential < restricted.
type Level string

const (
	LevelInternal     Level = "internal"
	LevelConfidential Level = "confidential"
	LevelRestricted   Level = "restricted"
)

var levelRank = map[Level]int{
	LevelInternal:     0,
	LevelConfidential: 1,
	LevelRestricted:   2,
}

// ValidLevel — проверка значения из конфига/запроса.
func ValidLevel(l Level) bool { _, ok := levelRank[l]; return ok }

// Compare: <0 если a ниже b, 0 если равны, >0 если выше.
func Compare(a, b Level) int { return levelRank[a] - levelRank[b] }

// Встроенные паттерны. Каталог из YAML может только дополнять, не убирать.
var (
	builtinSensitive = []string{
		`email`,
		`phone`,
		`ssn|social`,
		`(id|name)$`,
		`address`,
		`birth|dob`,
		`medical`,
		`salary|wage|income|credit`,
		`password`,
	}
	// слово "confidential" само по себе restricted не делает:
	// "confidential salary data" даёт confidential, не restricted;
	// в confidential-ярус само слово при этом попадает
	builtinRestricted = []string{
		`proprietary`,
		`strictly[\s_-]confidential`,
		`trade[\s_-]?secret`,
		`patent`,
		`intellectual[\s_-]?property`,
		`classified`,
	}
	builtinConfidential = []string{
		`confidential`,
		`ssn`,
		`medical|health`,
		`financial`,
		`salary|wage`,
		`credit`,
		`bank`,
	}
	// формы PII в значениях: email, SSN, телефон, номер карты
	builtinPII = []string{
		`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`,
		`\b\d{3}-\d{2}-\d{4}\b`,
		`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`,
		`\b(?:\d[ \-]?){13,16}\b`,
	}
)

// Classifier решает, чувствительно ли поле и какой уровень заслуживает запись.
// Чистые функции, без состояния после конструирования.
type Classifier struct {
	sensitive    []*regexp.Regexp
	restricted   []*regexp.Regexp
	confidential []*regexp.Regexp
	pii          []*regexp.Regexp
}

func New() *Classifier {
	c := &Classifier{}
	// встроенные паттерны валидны по построению
	c.sensitive = mustCompileAll(builtinSensitive)
	c.restricted = mustCompileAll(builtinRestricted)
	c.confidential = mustCompileAll(builtinConfidential)
	c.pii = mustCompileAll(builtinPII)
	return c
}

func mustCompileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Extend добавляет паттерны из каталога к встроенным.
func (c *Classifier) Extend(set PatternSet) error {
	add := func(dst *[]*regexp.Regexp, patterns []string, kind string) error {
		for _, p := range patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return fmt.Errorf("%s pattern %q: %w", kind, p, err)
			}
			*dst = append(*dst, re)
		}
		return nil
	}
	if err := add(&c.sensitive, set.Sensitive, "sensitive"); err != nil {
		return err
	}
	if err := add(&c.restricted, set.Restricted, "restricted"); err != nil {
		return err
	}
	if err := add(&c.confidential, set.Confidential, "confidential"); err != nil {
		return err
	}
	return nil
}

// IsSensitive: поле считается чувствительным, если имя ИЛИ подпись
// матчится хотя бы одним паттерном (персональные/финансовые/медицинские данные).
func (c *Classifier) IsSensitive(nameOrLabel string) bool {
	s := strings.ToLower(strings.TrimSpace(nameOrLabel))
	if s == "" {
		return false
	}
	for _, re := range c.sensitive {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Classify сканирует каноничную текстовую форму записи.
// restricted > confidential > internal. Наличие PII уровень НЕ поднимает —
// это зафиксированная политика, сигнал ContainsPII отдаётся отдельно.
func (c *Classifier) Classify(record map[string]any) Level {
	text := Canonical(record)
	for _, re := range c.restricted {
		if re.MatchString(text) {
			return LevelRestricted
		}
	}
	for _, re := range c.confidential {
		if re.MatchString(text) {
			return LevelConfidential
		}
	}
	return LevelInternal
}

// ContainsPII — только сигнал (для аудита), на Classify не влияет.
func (c *Classifier) ContainsPII(record map[string]any) bool {
	text := Canonical(record)
	for _, re := range c.pii {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Canonical — детерминированная lowercase-сериализация записи:
// ключи сортируются, пары пишутся как k=v через ";".
func Canonical(record map[string]any) string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%v", k, record[k])
	}
	return strings.ToLower(b.String())
}
