// api/router.go
package api

import (
	"github.com/gin-gonic/gin"
)

func Router(app *App) *gin.Engine {
	r := gin.Default()

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", HealthHandler(app))

		apiGroup.POST("/connect", ConnectHandler(app))
		apiGroup.POST("/disconnect", DisconnectHandler(app))

		apiGroup.POST("/tables/:table/provision", ProvisionHandler(app))
		apiGroup.POST("/tables/:table/submit", SubmitHandler(app))

		apiGroup.GET("/audit", AuditHandler(app))

		apiGroup.GET("/templates", TemplateListHandler(app))
		apiGroup.GET("/templates/:name", TemplateGetHandler(app))
		apiGroup.POST("/templates", TemplateSaveHandler(app))
	}

	return r
}

func RunServer(addr string, app *App) {
	_ = Router(app).Run(addr)
}
