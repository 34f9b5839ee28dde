package schema

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"zaslon/internal/classify"
)

// Policy — одно правило доступа; применяются независимо друг от друга.
type Policy struct {
	Name string
	SQL  string
}

// SQLExecutor — абстрактный канал исполнения SQL (нужен только на провижининге).
type SQLExecutor interface {
	Exec(ctx context.Context, sql string) error
}

// AccessPolicies — четыре RLS-правила:
//   - читать: создатель, коллеги по департаменту (в пределах уровня доступа таблицы), админ
//   - вставлять: любой аутентифицированный, но только от своего имени
//   - менять: создатель или админ
//   - удалять: только админ
func (g *Generator) AccessPolicies(table string, level classify.Level) []Policy {
	table = SanitizeIdent(table)
	t := quoteIdent(table)

	return []Policy{
		{
			Name: table + "_select",
			SQL: fmt.Sprintf(
				`create policy %s on %s for select using (created_by = %s or %s = 'admin' or ("department" = %s and "security_classification" = '%s'));`,
				quoteIdent(table+"_select"), t, jwtEmail, jwtRole, jwtDept, level),
		},
		{
			Name: table + "_insert",
			SQL: fmt.Sprintf(
				`create policy %s on %s for insert with check (%s is not null and created_by = %s);`,
				quoteIdent(table+"_insert"), t, jwtEmail, jwtEmail),
		},
		{
			Name: table + "_update",
			SQL: fmt.Sprintf(
				`create policy %s on %s for update using (created_by = %s or %s = 'admin');`,
				quoteIdent(table+"_update"), t, jwtEmail, jwtRole),
		},
		{
			Name: table + "_delete",
			SQL: fmt.Sprintf(
				`create policy %s on %s for delete using (%s = 'admin');`,
				quoteIdent(table+"_delete"), t, jwtRole),
		},
	}
}

// ApplyAccessPolicies применяет правила по одному. Отказ отдельного правила —
// warning, оставшиеся правила всё равно применяются; откат не делается.
// Возвращает агрегат отказов (nil, если всё применилось).
func (g *Generator) ApplyAccessPolicies(ctx context.Context, exec SQLExecutor, table string, level classify.Level) error {
	var result *multierror.Error
	for _, p := range g.AccessPolicies(table, level) {
		if err := exec.Exec(ctx, p.SQL); err != nil {
			g.log.Warn("access policy not applied", "policy", p.Name, "error", err)
			result = multierror.Append(result, fmt.Errorf("policy %s: %w", p.Name, err))
		}
	}
	return result.ErrorOrNil()
}
