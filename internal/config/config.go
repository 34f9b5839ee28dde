package config

import (
	"encoding/json"
	"flag"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port         string `json:"port"`
	TemplatesDir string `json:"templatesDir"`
	PatternsDir  string `json:"patternsDir"`
	StatePath    string `json:"statePath"` // локальный KV-файл (шаблоны + аудит)

	// удалённый эндпоинт
	EndpointURL        string `json:"endpointUrl"`
	EndpointKey        string `json:"endpointKey"`
	EndpointHostSuffix string `json:"endpointHostSuffix"`
	RequestTimeoutSec  int    `json:"requestTimeoutSec"`

	// канал исполнения SQL для провижининга (пустой = провижининг выключен)
	DBURL string `json:"dbUrl"`

	// дефолты опций безопасности при провижининге
	AuditLog      bool   `json:"enableAuditLog"`
	Encryption    bool   `json:"enableEncryption"`
	Department    bool   `json:"departmentLevel"`
	RetentionDays int    `json:"retentionDays"`
	AccessLevel   string `json:"accessLevel"`
}

func def() Config {
	return Config{
		Port:         "8080",
		TemplatesDir: "templates",
		PatternsDir:  "patterns",
		StatePath:    "state/zaslon.json",

		EndpointURL:        "",
		EndpointKey:        "",
		EndpointHostSuffix: ".supabase.co",
		RequestTimeoutSec:  30,

		DBURL: "",

		AuditLog:      true,
		Encryption:    true,
		Department:    true,
		RetentionDays: 0,
		AccessLevel:   "internal",
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	if v, ok := os.LookupEnv(k); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// LoadWithPath читает JSON по указанному пути, потом применяет ENV и флаги.
func LoadWithPath(jsonPath string) Config {
	return load(jsonPath, os.Args[1:])
}

func load(jsonPath string, args []string) Config {
	cfg := def()

	// JSON (если файл существует)
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		if c2, err := loadJSON(jsonPath); err == nil {
			cfg = c2
		}
	}

	// ENV overrides
	cfg.Port = getenv("ZASLON_PORT", cfg.Port)
	cfg.TemplatesDir = getenv("ZASLON_TEMPLATES_DIR", cfg.TemplatesDir)
	cfg.PatternsDir = getenv("ZASLON_PATTERNS_DIR", cfg.PatternsDir)
	cfg.StatePath = getenv("ZASLON_STATE_PATH", cfg.StatePath)
	cfg.EndpointURL = getenv("ZASLON_ENDPOINT_URL", cfg.EndpointURL)
	cfg.EndpointKey = getenv("ZASLON_ENDPOINT_KEY", cfg.EndpointKey)
	cfg.EndpointHostSuffix = getenv("ZASLON_ENDPOINT_HOST_SUFFIX", cfg.EndpointHostSuffix)
	cfg.RequestTimeoutSec = getenvInt("ZASLON_REQUEST_TIMEOUT_SEC", cfg.RequestTimeoutSec)
	cfg.DBURL = getenv("ZASLON_DB_URL", cfg.DBURL)
	cfg.AuditLog = getenvBool("ZASLON_AUDIT_LOG", cfg.AuditLog)
	cfg.Encryption = getenvBool("ZASLON_ENCRYPTION", cfg.Encryption)
	cfg.Department = getenvBool("ZASLON_DEPARTMENT_LEVEL", cfg.Department)
	cfg.RetentionDays = getenvInt("ZASLON_RETENTION_DAYS", cfg.RetentionDays)
	cfg.AccessLevel = getenv("ZASLON_ACCESS_LEVEL", cfg.AccessLevel)

	// Flags overrides. Свежий FlagSet на каждый вызов: перечитывание
	// по -config не должно регистрировать те же флаги второй раз.
	fs := flag.NewFlagSet("zaslon", flag.ExitOnError)
	configPath := fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", cfg.Port, "HTTP port")
	templates := fs.String("templates", cfg.TemplatesDir, "Path to form templates directory")
	patterns := fs.String("patterns", cfg.PatternsDir, "Path to classification patterns directory")
	state := fs.String("state", cfg.StatePath, "Path to local state file")
	endpoint := fs.String("endpoint", cfg.EndpointURL, "Remote table endpoint URL")
	key := fs.String("key", cfg.EndpointKey, "Remote endpoint API key")
	db := fs.String("db", cfg.DBURL, "Postgres URL for provisioning (empty = disabled)")

	_ = fs.Parse(args)

	// Если через флаг передали другой конфиг — перечитаем
	if *configPath != jsonPath {
		return load(*configPath, args)
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.TemplatesDir = strings.TrimSpace(*templates)
	cfg.PatternsDir = strings.TrimSpace(*patterns)
	cfg.StatePath = strings.TrimSpace(*state)
	cfg.EndpointURL = strings.TrimSpace(*endpoint)
	cfg.EndpointKey = strings.TrimSpace(*key)
	cfg.DBURL = strings.TrimSpace(*db)

	return cfg
}
