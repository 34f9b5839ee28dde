package schema

import (
	"regexp"
	"strings"
)

// максимум для идентификатора Postgres
const maxIdentLen = 63

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {}, "policy": {},
	"trigger": {}, "function": {},
}

func isReserved(s string) bool { _, ok := reserved[strings.ToLower(s)]; return ok }

var tableNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidTableName — грамматика имени таблицы: первая буква, дальше буквы/цифры/подчёркивание, ≤63.
func ValidTableName(s string) bool {
	return tableNameRe.MatchString(strings.ToLower(s)) && !isReserved(s)
}

var nonIdentChar = regexp.MustCompile(`[^a-z0-9_]`)

// SanitizeIdent — единственная защита от инъекций, применяется к КАЖДОЙ
// позиции идентификатора в генерируемом SQL. Идемпотентна:
// SanitizeIdent(SanitizeIdent(x)) == SanitizeIdent(x).
func SanitizeIdent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonIdentChar.ReplaceAllString(s, "_")
	if s == "" {
		return "f_"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "f_" + s
	}
	if isReserved(s) {
		s = "f_" + s
	}
	if len(s) > maxIdentLen {
		s = s[:maxIdentLen]
	}
	return s
}

// quoteIdent цитирует уже санитизированный идентификатор.
func quoteIdent(s string) string { return `"` + s + `"` }
