package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
)

// OpenDB — прямое подключение к Postgres для канала исполнения SQL
// (используется только при провижининге таблиц).
func OpenDB(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// PgExecutor — SQLExecutor поверх *sql.DB, терпимый к повторному провижинингу:
// duplicate_object (42710/42P07) не считается ошибкой, DDL у нас idempotent.
type PgExecutor struct {
	DB  *sql.DB
	Log hclog.Logger
}

func (p *PgExecutor) Exec(ctx context.Context, sqlText string) error {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return nil
	}
	log := p.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if _, err := p.DB.ExecContext(ctx, sqlText); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "42710" || pgErr.Code == "42P07") {
			log.Debug("ddl skipped, object already exists", "detail", strings.TrimSpace(pgErr.Message))
			return nil
		}
		// подстраховка по фразе на случай других объектов
		e := strings.ToLower(err.Error())
		if strings.Contains(e, "already exists") || strings.Contains(e, "duplicate") {
			log.Debug("ddl skipped, object already exists", "error", err)
			return nil
		}
		return fmt.Errorf("sql apply failed: %w", err)
	}
	return nil
}
