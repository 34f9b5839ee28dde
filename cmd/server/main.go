package main

import (
	"os"

	"github.com/hashicorp/go-hclog"

	"zaslon/internal/api"
	"zaslon/internal/audit"
	"zaslon/internal/classify"
	"zaslon/internal/config"
	"zaslon/internal/forms"
	"zaslon/internal/kv"
)

func main() {
	log := hclog.New(&hclog.LoggerOptions{
		Name:  "zaslon",
		Level: hclog.Info,
	})

	cfg := config.LoadWithPath("zaslon.json")

	// 1. Классификатор: встроенные паттерны + каталог из YAML
	classifier := classify.New()
	patterns, err := classify.LoadPatternCatalog(cfg.PatternsDir)
	if err != nil {
		log.Error("pattern catalog load failed", "dir", cfg.PatternsDir, "error", err)
		os.Exit(1)
	}
	if err := classifier.Extend(patterns); err != nil {
		log.Error("pattern catalog is invalid", "error", err)
		os.Exit(1)
	}

	// 2. Шаблоны форм с диска (каталог может быть пустым)
	templates, err := forms.LoadAllTemplates(cfg.TemplatesDir)
	if err != nil {
		if os.IsNotExist(err) {
			templates = map[string]*forms.Template{}
		} else {
			log.Error("templates load failed", "dir", cfg.TemplatesDir, "error", err)
			os.Exit(1)
		}
	}
	log.Info("templates loaded", "count", len(templates))

	// 3. Внешний KV: шаблоны + журнал аудита
	store, err := kv.OpenFile(cfg.StatePath)
	if err != nil {
		log.Error("state open failed", "path", cfg.StatePath, "error", err)
		os.Exit(1)
	}
	trail := audit.NewTrail(store, log)

	// 4. REST API
	app := api.NewApp(cfg, log, classifier, templates, forms.NewStore(store), trail)
	log.Info("starting server", "port", cfg.Port)
	api.RunServer(":"+cfg.Port, app)
}
