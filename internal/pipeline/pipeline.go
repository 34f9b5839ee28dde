package pipeline

import (
	"context"
	"fmt"

	"zaslon/internal/audit"
	"zaslon/internal/classify"
	"zaslon/internal/remote"
	"zaslon/internal/schema"
	"zaslon/internal/secure"
)

// Role — роль вызывающего в контексте безопасности.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SecurityContext приходит от вызывающего на каждую операцию;
// ядро его не хранит нигде, кроме аудит-записей.
type SecurityContext struct {
	UserEmail  string `json:"userEmail"`
	Department string `json:"department"`
	Role       Role   `json:"role"`
	ClientIP   string `json:"clientIp,omitempty"`
}

// SubmitResult — структурированный итог: флаг успеха + сообщение,
// никаких паник наружу.
type SubmitResult struct {
	OK             bool           `json:"ok"`
	Message        string         `json:"message,omitempty"`
	Classification classify.Level `json:"classification,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	Record         map[string]any `json:"record,omitempty"`
}

// Submit проводит одну запись через конвейер:
// валидация -> классификация -> трансформация -> передача.
// Каждый терминальный исход оставляет ровно одну аудит-запись.
func (s *Session) Submit(ctx context.Context, table string, record map[string]any, sc SecurityContext) *SubmitResult {
	if !s.Connected() {
		return s.fail(audit.EventValidationFailed, table, record, sc, classify.Level(""), "not connected")
	}
	if !schema.ValidTableName(table) {
		return s.fail(audit.EventValidationFailed, table, record, sc, classify.Level(""), fmt.Sprintf("invalid table name %q", table))
	}
	table = schema.SanitizeIdent(table)

	// классификация пересчитывается на каждый сабмит, не кэшируется
	level := s.classifier.Classify(record)
	pii := s.classifier.ContainsPII(record)

	// --- Validating ---
	if sc.UserEmail == "" {
		return s.fail(audit.EventValidationFailed, table, record, sc, level, "authentication required")
	}
	if level == classify.LevelRestricted && sc.Role != RoleAdmin {
		return s.fail(audit.EventValidationFailed, table, record, sc, level, "restricted data requires admin role")
	}
	var warnings []string
	for name, value := range record {
		if secure.Empty(value) {
			warnings = append(warnings, fmt.Sprintf("field %q is empty", name))
		}
	}

	// --- Transforming ---
	department := sc.Department
	if department == "" {
		department = "general"
	}
	merged := make(map[string]any, len(record)+3)
	for k, v := range record {
		merged[k] = v
	}
	merged["department"] = department
	merged["security_classification"] = string(level)
	merged["created_by"] = sc.UserEmail

	secured, mode := s.cipher.EncryptRecord(ctx, merged)
	if mode == secure.ModeDegraded {
		// деградация тихая для пользователя, но не для оператора
		warnings = append(warnings, "encryption degraded: sensitive values passed through in plaintext")
		s.trail.Append(audit.EventEncryptionDegraded, sc.UserEmail, s.clientID, map[string]any{
			"table": table,
		})
	}
	// дайджест считается по записи ДО шифрования: он валидирует исходное
	// содержимое независимо от того, какие поля ушли шифротекстом
	secured["data_hash"] = s.digest.RecordSum(record)

	// --- Transmitting ---
	inserted, err := s.endpoint.Insert(ctx, table, secured, remote.Identity{
		Email:      sc.UserEmail,
		Department: department,
		ClientIP:   sc.ClientIP,
	})
	if err != nil {
		res := s.fail(audit.EventTransmissionFailed, table, record, sc, level, transmitMessage(err))
		res.Warnings = warnings
		return res
	}

	// --- Succeeded ---
	s.trail.Append(audit.EventSubmission, sc.UserEmail, s.clientID, map[string]any{
		"table":          table,
		"field_count":    len(record),
		"classification": string(level),
		"pii_detected":   pii,
	})
	return &SubmitResult{
		OK:             true,
		Message:        "submitted",
		Classification: level,
		Warnings:       warnings,
		Record:         inserted,
	}
}

func (s *Session) fail(kind audit.EventKind, table string, record map[string]any, sc SecurityContext, level classify.Level, msg string) *SubmitResult {
	s.trail.Append(kind, sc.UserEmail, s.clientID, map[string]any{
		"table":       table,
		"field_count": len(record),
		"error":       msg,
	})
	return &SubmitResult{OK: false, Message: msg, Classification: level}
}

func transmitMessage(err error) string {
	if err == nil {
		return "submission failed"
	}
	return err.Error()
}
