package schema

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"zaslon/internal/classify"
	"zaslon/internal/forms"
)

// Options — опции безопасности при провижининге таблицы.
type Options struct {
	AuditLog      bool           `json:"enableAuditLog"`
	Encryption    bool           `json:"enableEncryption"`
	Department    bool           `json:"departmentLevel"`
	RetentionDays int            `json:"retentionDays,omitempty"`
	AccessLevel   classify.Level `json:"accessLevel"`
}

func DefaultOptions() Options {
	return Options{
		AuditLog:    true,
		Encryption:  true,
		Department:  true,
		AccessLevel: classify.LevelInternal,
	}
}

// TableSQL — результат генерации: DDL (таблица + индексы + включение RLS),
// триггер аудита и retention-функция (пустая строка, если retention выключен).
type TableSQL struct {
	CreateSQL       string
	AuditTriggerSQL string
	RetentionSQL    string
}

// идентичность вызывающего на уровне БД — из JWT-клеймов, не из payload'а клиента
const (
	jwtEmail = `current_setting('request.jwt.claims', true)::json->>'email'`
	jwtDept  = `current_setting('request.jwt.claims', true)::json->>'department'`
	jwtRole  = `current_setting('request.jwt.claims', true)::json->>'role'`
)

// Generator строит SQL из декларативного списка полей. Чистые функции:
// никакого состояния, кроме классификатора и логгера.
type Generator struct {
	classifier *classify.Classifier
	log        hclog.Logger
}

func NewGenerator(classifier *classify.Classifier, log hclog.Logger) *Generator {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Generator{classifier: classifier, log: log.Named("schema")}
}

// column — маленький AST вместо сырой конкатенации: имена проходят через
// единственную точку санитизации, рендер — отдельно.
type column struct {
	name string // уже санитизировано
	def  string // тип + ограничения
}

func sqlType(f forms.Field) string {
	switch f.Type {
	case forms.FieldNumber:
		return "numeric"
	case forms.FieldDate:
		return "date"
	case forms.FieldCheckbox:
		return "boolean"
	default:
		// text, textarea, email, phone, select — всё text
		return "text"
	}
}

// GenerateTableSQL — DDL таблицы под список полей формы.
// Чувствительные поля при включённом шифровании получают пару
// <поле>_encrypted/<поле>_hash вместо открытой колонки.
func (g *Generator) GenerateTableSQL(table string, fields []forms.Field, opts Options) (*TableSQL, error) {
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if !classify.ValidLevel(opts.AccessLevel) {
		return nil, fmt.Errorf("invalid access level %q", opts.AccessLevel)
	}
	table = SanitizeIdent(table)

	// системные колонки
	cols := []column{
		{"id", "bigint generated by default as identity primary key"},
		{"created_at", "timestamp with time zone not null default now()"},
		{"updated_at", "timestamp with time zone not null default now()"},
		{"created_by", "text not null default " + jwtEmail},
		{"security_classification", fmt.Sprintf("text not null default '%s'", opts.AccessLevel)},
		{"data_hash", "text not null"},
	}
	if opts.Department {
		cols = append(cols, column{"department", "text not null default 'general'"})
	}
	if opts.AuditLog {
		cols = append(cols, column{"audit_log", "jsonb not null default '[]'::jsonb"})
	}

	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		seen[c.name] = struct{}{}
	}

	// пользовательские поля
	for _, f := range fields {
		name := SanitizeIdent(f.Name)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("field %q duplicates a system or earlier column", f.Name)
		}
		seen[name] = struct{}{}

		if opts.Encryption && (g.classifier.IsSensitive(f.Name) || g.classifier.IsSensitive(f.Label)) {
			// открытой колонки нет вообще; hash — для поиска по равенству
			cols = append(cols, column{name + "_encrypted", "text"})
			cols = append(cols, column{name + "_hash", "text"})
			continue
		}

		def := sqlType(f)
		if f.Required {
			def += " not null"
		}
		cols = append(cols, column{name, def})
	}

	var b strings.Builder
	rendered := make([]string, 0, len(cols))
	for _, c := range cols {
		rendered = append(rendered, quoteIdent(SanitizeIdent(c.name))+" "+c.def)
	}
	fmt.Fprintf(&b, "create table if not exists %s (\n  %s\n);\n",
		quoteIdent(table), strings.Join(rendered, ",\n  "))

	// RLS включаем всегда
	fmt.Fprintf(&b, "alter table %s enable row level security;\n", quoteIdent(table))

	// индексы: created_at, created_by, department (если есть)
	fmt.Fprintf(&b, "create index if not exists %s on %s (created_at);\n",
		quoteIdent(table+"_created_at_idx"), quoteIdent(table))
	fmt.Fprintf(&b, "create index if not exists %s on %s (created_by);\n",
		quoteIdent(table+"_created_by_idx"), quoteIdent(table))
	if opts.Department {
		fmt.Fprintf(&b, "create index if not exists %s on %s (department);\n",
			quoteIdent(table+"_department_idx"), quoteIdent(table))
	}

	out := &TableSQL{CreateSQL: b.String()}
	if opts.AuditLog {
		out.AuditTriggerSQL = g.GenerateAuditTrigger(table)
	}
	if opts.RetentionDays > 0 {
		out.RetentionSQL = g.GenerateRetentionPolicy(table, opts.RetentionDays)
	}
	return out, nil
}

// GenerateAuditTrigger — триггер, пишущий структурированный аудит в audit_log
// строки (insert/update, с diff изменённых полей), а на delete копирующий
// полную строку в таблицу-архив <table>_audit. Это единственный путь
// восстановления удалённых данных.
func (g *Generator) GenerateAuditTrigger(table string) string {
	table = SanitizeIdent(table)
	audit := SanitizeIdent(table + "_audit")
	fn := SanitizeIdent(table + "_audit_fn")
	trg := SanitizeIdent(table + "_audit_trg")

	var b strings.Builder
	fmt.Fprintf(&b, `create table if not exists %s (
  "id" bigint generated by default as identity primary key,
  "archived_at" timestamp with time zone not null default now(),
  "archived_by" text default %s,
  "row_data" jsonb not null
);
`, quoteIdent(audit), jwtEmail)

	fmt.Fprintf(&b, `create or replace function %s() returns trigger as $$
begin
  if (tg_op = 'DELETE') then
    insert into %s ("row_data") values (to_jsonb(old));
    return old;
  end if;
  if (tg_op = 'UPDATE') then
    new.updated_at := now();
    new.audit_log := old.audit_log || jsonb_build_array(jsonb_build_object(
      'action', 'update',
      'at', now(),
      'by', %s,
      'changed', (
        select coalesce(jsonb_object_agg(key, value), '{}'::jsonb)
        from jsonb_each(to_jsonb(new))
        where to_jsonb(old) -> key is distinct from value
      )
    ));
    return new;
  end if;
  new.audit_log := new.audit_log || jsonb_build_array(jsonb_build_object(
    'action', 'insert',
    'at', now(),
    'by', %s
  ));
  return new;
end;
$$ language plpgsql;
`, quoteIdent(fn), quoteIdent(audit), jwtEmail, jwtEmail)

	fmt.Fprintf(&b, `drop trigger if exists %s on %s;
create trigger %s
  before insert or update or delete on %s
  for each row execute function %s();
`, quoteIdent(trg), quoteIdent(table), quoteIdent(trg), quoteIdent(table), quoteIdent(fn))

	return b.String()
}

// GenerateRetentionPolicy — функция очистки: архивирует, потом удаляет строки
// старше порога. Запуск по расписанию — забота внешнего cron'а, ядро её
// никогда не вызывает само.
func (g *Generator) GenerateRetentionPolicy(table string, days int) string {
	table = SanitizeIdent(table)
	audit := SanitizeIdent(table + "_audit")
	fn := SanitizeIdent(table + "_cleanup")

	var b strings.Builder
	fmt.Fprintf(&b, `create or replace function %s() returns integer as $$
declare
  archived integer;
begin
  insert into %s ("row_data")
    select to_jsonb(t) from %s t
    where t.created_at < now() - interval '%d days';
  get diagnostics archived = row_count;
  delete from %s where created_at < now() - interval '%d days';
  return archived;
end;
$$ language plpgsql;
`, quoteIdent(fn), quoteIdent(audit), quoteIdent(table), days, quoteIdent(table), days)

	return b.String()
}
