package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"

	"zaslon/internal/audit"
	"zaslon/internal/classify"
	"zaslon/internal/forms"
	"zaslon/internal/remote"
	"zaslon/internal/schema"
	"zaslon/internal/secure"
)

// Params — всё, что нужно для установления сессии.
type Params struct {
	EndpointURL string
	APIKey      string
	HostSuffix  string        // разрешённый суффикс хоста эндпоинта
	Timeout     time.Duration // таймаут сетевых запросов
	DBURL       string        // канал SQL для провижининга; пустой = выключен

	Classifier *classify.Classifier
	Trail      *audit.Trail
	Logger     hclog.Logger
}

// Session — явный объект сессии вместо глобального коннектора: строится на
// connect, умирает на disconnect. Сессионный ключ шифрования живёт только здесь.
type Session struct {
	endpoint   *remote.Endpoint
	db         *sql.DB
	executor   schema.SQLExecutor
	classifier *classify.Classifier
	digest     *secure.Digest
	cipher     *secure.Cipher
	gen        *schema.Generator
	trail      *audit.Trail
	clientID   string
	log        hclog.Logger

	mu        sync.Mutex
	connected bool
}

// Connect валидирует эндпоинт и ключ, проверяет живость и собирает сессию.
// Обе проверки — предусловия connect, отдельные сабмиты их не повторяют.
func Connect(ctx context.Context, p Params) (*Session, error) {
	log := p.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("pipeline")

	if err := remote.ValidateEndpointURL(p.EndpointURL, p.HostSuffix); err != nil {
		return nil, err
	}
	if err := remote.ValidateAPIKey(p.APIKey); err != nil {
		return nil, err
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}

	endpoint := remote.NewEndpoint(p.EndpointURL, p.APIKey, p.Timeout, log)
	if err := endpoint.Ping(ctx); err != nil {
		p.Trail.Append(audit.EventConnect, "", "", map[string]any{
			"endpoint": p.EndpointURL,
			"ok":       false,
			"error":    err.Error(),
		})
		return nil, err
	}

	var db *sql.DB
	var executor schema.SQLExecutor
	if p.DBURL != "" {
		var err error
		db, err = remote.OpenDB(p.DBURL)
		if err != nil {
			return nil, fmt.Errorf("sql channel: %w", err)
		}
		executor = &remote.PgExecutor{DB: db, Log: log}
	}

	digest := secure.NewDigest(p.EndpointURL)
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)

	s := &Session{
		endpoint:   endpoint,
		db:         db,
		executor:   executor,
		classifier: p.Classifier,
		digest:     digest,
		cipher:     secure.NewCipher(p.Classifier, digest, log),
		gen:        schema.NewGenerator(p.Classifier, log),
		trail:      p.Trail,
		clientID:   ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		log:        log,
		connected:  true,
	}

	s.trail.Append(audit.EventConnect, "", s.clientID, map[string]any{
		"endpoint": p.EndpointURL,
		"ok":       true,
	})
	log.Info("session established", "endpoint", p.EndpointURL, "client", s.clientID)
	return s, nil
}

// Disconnect уничтожает сессионный ключ и закрывает канал SQL.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = false
	s.mu.Unlock()

	s.cipher.Destroy()
	if s.db != nil {
		_ = s.db.Close()
	}
	s.trail.Append(audit.EventDisconnect, "", s.clientID, nil)
	s.log.Info("session closed", "client", s.clientID)
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) ClientID() string { return s.clientID }

// ProvisionResult — итог провижининга таблицы.
type ProvisionResult struct {
	Table    string   `json:"table"`
	Applied  int      `json:"applied"`
	Warnings []string `json:"warnings,omitempty"`
}

// ProvisionTable генерирует и применяет DDL, триггер аудита, retention и
// политики доступа для шаблона формы. Отказ отдельной политики — warning,
// не откат: остальные правила всё равно применяются.
func (s *Session) ProvisionTable(ctx context.Context, tmpl *forms.Template, opts schema.Options) (*ProvisionResult, error) {
	if s.executor == nil {
		return nil, fmt.Errorf("no sql channel configured")
	}

	gen, err := s.gen.GenerateTableSQL(tmpl.Table, tmpl.Fields, opts)
	if err != nil {
		return nil, err
	}

	res := &ProvisionResult{Table: schema.SanitizeIdent(tmpl.Table)}
	for _, stmt := range []string{gen.CreateSQL, gen.AuditTriggerSQL, gen.RetentionSQL} {
		if stmt == "" {
			continue
		}
		if err := s.executor.Exec(ctx, stmt); err != nil {
			return nil, err
		}
		res.Applied++
	}

	if err := s.gen.ApplyAccessPolicies(ctx, s.executor, tmpl.Table, opts.AccessLevel); err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		s.trail.Append(audit.EventPolicyWarning, "", s.clientID, map[string]any{
			"table": res.Table,
			"error": err.Error(),
		})
	}

	s.trail.Append(audit.EventProvision, "", s.clientID, map[string]any{
		"table":       res.Table,
		"field_count": len(tmpl.Fields),
		"warnings":    len(res.Warnings),
	})
	return res, nil
}
