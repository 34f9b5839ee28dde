package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"zaslon/internal/forms"
	"zaslon/internal/pipeline"
	"zaslon/internal/schema"
)

// GET /api/health
func HealthHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := app.Session()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"connected": s != nil && s.Connected(),
		})
	}
}

type connectRequest struct {
	EndpointURL string `json:"endpointUrl"`
	APIKey      string `json:"apiKey"`
}

// POST /api/connect
// Тело может переопределить эндпоинт/ключ из конфига. Повторный connect
// закрывает предыдущую сессию.
func ConnectHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req connectRequest
		// пустое тело допустимо — возьмём всё из конфига
		_ = c.ShouldBindJSON(&req)

		if req.EndpointURL == "" {
			req.EndpointURL = app.Cfg.EndpointURL
		}
		if req.APIKey == "" {
			req.APIKey = app.Cfg.EndpointKey
		}

		if old := app.Session(); old != nil {
			old.Disconnect()
			app.setSession(nil)
		}

		s, err := pipeline.Connect(c.Request.Context(), pipeline.Params{
			EndpointURL: req.EndpointURL,
			APIKey:      req.APIKey,
			HostSuffix:  app.Cfg.EndpointHostSuffix,
			Timeout:     time.Duration(app.Cfg.RequestTimeoutSec) * time.Second,
			DBURL:       app.Cfg.DBURL,
			Classifier:  app.Classifier,
			Trail:       app.Trail,
			Logger:      app.Log,
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		app.setSession(s)
		c.JSON(http.StatusOK, gin.H{"connected": true, "client": s.ClientID()})
	}
}

// POST /api/disconnect
func DisconnectHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s := app.Session(); s != nil {
			s.Disconnect()
			app.setSession(nil)
		}
		c.JSON(http.StatusOK, gin.H{"connected": false})
	}
}

type provisionRequest struct {
	Options *schema.Options `json:"options"`
}

// POST /api/tables/:table/provision
func ProvisionHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := app.Session()
		if s == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "not connected"})
			return
		}
		table := c.Param("table")
		tmpl, ok := app.templateForTable(table)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"errors": []FieldError{ferr(ErrNotFound, "table", "No template targets table '"+table+"'")},
			})
			return
		}

		opts := optionsFromConfig(app)
		var req provisionRequest
		if err := c.ShouldBindJSON(&req); err == nil && req.Options != nil {
			opts = *req.Options
		}

		res, err := s.ProvisionTable(c.Request.Context(), tmpl, opts)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

type submitRequest struct {
	Record  map[string]any           `json:"record"`
	Context pipeline.SecurityContext `json:"context"`
}

// POST /api/tables/:table/submit
func SubmitHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := app.Session()
		if s == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "not connected"})
			return
		}
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Record == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		if req.Context.ClientIP == "" {
			req.Context.ClientIP = c.ClientIP()
		}

		table := c.Param("table")

		// мягкие предупреждения по шаблону, если он есть
		var fieldWarns []FieldError
		if tmpl, ok := app.templateForTable(table); ok {
			fieldWarns = checkAgainstTemplate(tmpl, req.Record)
		}

		res := s.Submit(c.Request.Context(), table, req.Record, req.Context)
		status := http.StatusOK
		if !res.OK {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"result":         res,
			"field_warnings": fieldWarns,
		})
	}
}

// GET /api/audit?limit=N
func AuditHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		c.JSON(http.StatusOK, gin.H{"events": app.Trail.Recent(limit)})
	}
}

// GET /api/templates
func TemplateListHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := make([]string, 0, len(app.Templates))
		for name := range app.Templates {
			names = append(names, name)
		}
		stored, err := app.Store.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"loaded": names, "stored": stored})
	}
}

// GET /api/templates/:name
func TemplateGetHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if t, ok := app.Templates[name]; ok {
			c.JSON(http.StatusOK, t)
			return
		}
		t, err := app.Store.Load(name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"errors": []FieldError{ferr(ErrNotFound, "name", "Template '"+name+"' not found")},
			})
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// POST /api/templates
func TemplateSaveHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var t forms.Template
		if err := c.ShouldBindJSON(&t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		if err := app.Store.Save(&t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": []FieldError{ferr(ErrBadRequest, "template", err.Error())},
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"saved": t.Name})
	}
}

func optionsFromConfig(app *App) schema.Options {
	opts := schema.DefaultOptions()
	opts.AuditLog = app.Cfg.AuditLog
	opts.Encryption = app.Cfg.Encryption
	opts.Department = app.Cfg.Department
	opts.RetentionDays = app.Cfg.RetentionDays
	if app.Cfg.AccessLevel != "" {
		opts.AccessLevel = classifyLevel(app.Cfg.AccessLevel)
	}
	return opts
}
