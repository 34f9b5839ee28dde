package schema

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zaslon/internal/classify"
)

func TestAccessPolicies(t *testing.T) {
	g := testGenerator()
	policies := g.AccessPolicies("orders", classify.LevelInternal)
	require.Len(t, policies, 4)

	byName := make(map[string]string, len(policies))
	for _, p := range policies {
		byName[p.Name] = p.SQL
	}

	sel := byName["orders_select"]
	assert.Contains(t, sel, "for select")
	assert.Contains(t, sel, "created_by =")
	assert.Contains(t, sel, `"department" =`)
	assert.Contains(t, sel, "'admin'")
	assert.Contains(t, sel, "'internal'")

	ins := byName["orders_insert"]
	assert.Contains(t, ins, "for insert")
	assert.Contains(t, ins, "with check")
	assert.Contains(t, ins, "is not null")

	upd := byName["orders_update"]
	assert.Contains(t, upd, "for update")
	assert.Contains(t, upd, "'admin'")

	// удалять может только админ
	del := byName["orders_delete"]
	assert.Contains(t, del, "for delete")
	assert.Contains(t, del, "'admin'")
	assert.NotContains(t, del, "created_by")
}

// фейковый канал SQL: валит выбранные стейтменты, остальное записывает
type fakeExecutor struct {
	executed []string
	failOn   string
}

func (f *fakeExecutor) Exec(_ context.Context, sql string) error {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return fmt.Errorf("boom")
	}
	f.executed = append(f.executed, sql)
	return nil
}

// отказ одного правила не мешает применению остальных
func TestApplyAccessPoliciesPartialFailure(t *testing.T) {
	g := testGenerator()
	exec := &fakeExecutor{failOn: "for insert"}

	err := g.ApplyAccessPolicies(context.Background(), exec, "orders", classify.LevelInternal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders_insert")
	assert.Len(t, exec.executed, 3)
}

func TestApplyAccessPoliciesAllOK(t *testing.T) {
	g := testGenerator()
	exec := &fakeExecutor{}

	err := g.ApplyAccessPolicies(context.Background(), exec, "orders", classify.LevelInternal)
	require.NoError(t, err)
	assert.Len(t, exec.executed, 4)
}
