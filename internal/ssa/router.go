package ssa

import (
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/sankhya-agent/internal/ssa/handler/middleware"
	v1 "github.com/kiosk404/sankhya-agent/internal/ssa/handler/v1"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/agent"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	controller *agent.Controller
	registry   *tools.Registry
	rules      rules.Store
	authConfig *middleware.AuthConfig
	model      string
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	installMiddleware(g, deps)
	installController(g, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	if deps.authConfig != nil {
		g.Use(middleware.BearerAuth(deps.authConfig))
	}
}

func installController(g *gin.Engine, deps *routerDeps) {
	chatHandler := v1.NewChatCompletionsHandler(deps.controller, deps.model)
	modelHandler := v1.NewModelHandler(deps.model, deps.controller.ProviderName)
	toolHandler := v1.NewToolHandler(deps.registry)
	ruleHandler := v1.NewRuleHandler(deps.rules)

	apiV1 := g.Group("/v1")
	{
		// OpenAI-compatible endpoints.
		apiV1.POST("/chat/completions", chatHandler.Handle)
		apiV1.GET("/models", modelHandler.List)

		apiV1.GET("/tools", toolHandler.List)
		apiV1.POST("/tools/reload", toolHandler.Reload)

		apiV1.GET("/rules", ruleHandler.List)
		apiV1.POST("/rules/:id/approve", ruleHandler.Approve)
	}
}
