package api

import (
	"sync"

	"github.com/hashicorp/go-hclog"

	"zaslon/internal/audit"
	"zaslon/internal/classify"
	"zaslon/internal/config"
	"zaslon/internal/forms"
	"zaslon/internal/pipeline"
)

// App — состояние сервиса: конфиг, шаблоны, аудит и (максимум одна) активная сессия.
type App struct {
	Cfg        config.Config
	Log        hclog.Logger
	Classifier *classify.Classifier
	Templates  map[string]*forms.Template // загруженные с диска при старте
	Store      *forms.Store               // шаблоны во внешнем KV
	Trail      *audit.Trail

	mu      sync.Mutex
	session *pipeline.Session
}

func NewApp(cfg config.Config, log hclog.Logger, classifier *classify.Classifier,
	templates map[string]*forms.Template, store *forms.Store, trail *audit.Trail) *App {
	if templates == nil {
		templates = make(map[string]*forms.Template)
	}
	return &App{
		Cfg:        cfg,
		Log:        log,
		Classifier: classifier,
		Templates:  templates,
		Store:      store,
		Trail:      trail,
	}
}

func (a *App) Session() *pipeline.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) setSession(s *pipeline.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}

// templateForTable ищет шаблон по целевой таблице: сначала среди загруженных
// с диска, потом в KV.
func (a *App) templateForTable(table string) (*forms.Template, bool) {
	for _, t := range a.Templates {
		if t.Table == table {
			return t, true
		}
	}
	names, err := a.Store.List()
	if err != nil {
		return nil, false
	}
	for _, name := range names {
		t, err := a.Store.Load(name)
		if err != nil {
			continue
		}
		if t.Table == table {
			return t, true
		}
	}
	return nil, false
}
