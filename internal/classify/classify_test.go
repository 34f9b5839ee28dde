package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSensitive(t *testing.T) {
	c := New()

	sensitive := []string{
		"user_email", "Email Address", "phone_number", "ssn", "social_security",
		"home_address", "date_of_birth", "dob", "medical_history", "salary",
		"monthly_income", "credit_score", "password", "full_name", "employee_id",
	}
	for _, name := range sensitive {
		assert.True(t, c.IsSensitive(name), "expected %q to be sensitive", name)
	}

	plain := []string{
		"favorite_color", "quantity", "status", "comment", "department_code", "",
	}
	for _, name := range plain {
		assert.False(t, c.IsSensitive(name), "expected %q to be plain", name)
	}
}

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		record map[string]any
		want   Level
	}{
		{"plain", map[string]any{"note": "hello world"}, LevelInternal},
		{"confidential by salary", map[string]any{"note": "confidential salary data"}, LevelConfidential},
		{"confidential by medical", map[string]any{"note": "medical checkup results"}, LevelConfidential},
		{"confidential by bank", map[string]any{"note": "bank account details"}, LevelConfidential},
		{"confidential by word alone", map[string]any{"note": "confidential memo"}, LevelConfidential},
		{"restricted by patent", map[string]any{"note": "patent pending trade secret"}, LevelRestricted},
		{"restricted by strictly confidential", map[string]any{"note": "strictly confidential"}, LevelRestricted},
		{"restricted by proprietary", map[string]any{"memo": "proprietary algorithm"}, LevelRestricted},
		{"restricted wins over confidential", map[string]any{"a": "classified", "b": "salary"}, LevelRestricted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.record))
		})
	}
}

// наличие PII само по себе уровень не поднимает — это политика, не пропуск
func TestClassifyPIIDoesNotEscalate(t *testing.T) {
	c := New()
	record := map[string]any{"contact": "john@example.com"}
	require.True(t, c.ContainsPII(record))
	assert.Equal(t, LevelInternal, c.Classify(record))
}

func TestContainsPII(t *testing.T) {
	c := New()

	assert.True(t, c.ContainsPII(map[string]any{"v": "reach me at jane@corp.io"}))
	assert.True(t, c.ContainsPII(map[string]any{"v": "ssn is 123-45-6789"}))
	assert.True(t, c.ContainsPII(map[string]any{"v": "call 555-123-4567"}))
	assert.False(t, c.ContainsPII(map[string]any{"v": "no identifiers here"}))
}

func TestCanonicalOrderIndependent(t *testing.T) {
	a := map[string]any{"x": 1, "y": "two", "z": true}
	b := map[string]any{"z": true, "x": 1, "y": "two"}
	assert.Equal(t, Canonical(a), Canonical(b))
}

func TestExtend(t *testing.T) {
	c := New()
	require.False(t, c.IsSensitive("badge_number"))

	err := c.Extend(PatternSet{Sensitive: []string{`badge`}})
	require.NoError(t, err)
	assert.True(t, c.IsSensitive("badge_number"))

	err = c.Extend(PatternSet{Restricted: []string{`([`}})
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare(LevelInternal, LevelConfidential))
	assert.Negative(t, Compare(LevelConfidential, LevelRestricted))
	assert.Zero(t, Compare(LevelInternal, LevelInternal))
	assert.Positive(t, Compare(LevelRestricted, LevelInternal))
}
