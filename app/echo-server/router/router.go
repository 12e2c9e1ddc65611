package router

import (
	"github.com/choresh/PspRouter-sub000/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupMerchantRoutes(api *echo.Group, handler *rest.MerchantHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	merchants := api.Group("/merchants")

	merchants.POST("/token", handler.Token)

	merchants.POST("", handler.Onboard, authRequired, adminOnly)
	merchants.POST("/logout", handler.Logout, authRequired)
	merchants.GET("/me", handler.Me, authRequired)
	merchants.PUT("/me/preferences", handler.UpdatePreferences, authRequired)
}

func SetupRoutingRoutes(api *echo.Group, handler *rest.RoutingHandler, authRequired echo.MiddlewareFunc) {
	api.POST("/route", handler.Route, authRequired)
	api.POST("/route/debug", handler.DebugRoute, authRequired)
	api.POST("/outcomes", handler.ReportOutcome, authRequired)

	decisions := api.Group("/decisions", authRequired)
	decisions.GET("", handler.ListDecisions)
	decisions.GET("/:decision_id", handler.GetDecision)
}

func SetWebhookRoutes(api *echo.Group, handler *rest.WebhookHandler) {
	webhook := api.Group("/webhook")
	webhook.POST("/psp", handler.HandleWebhook)
}

func SetRoutingAdminRoutes(api *echo.Group, handler *rest.RoutingAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	admin := api.Group("/admin/routing", authRequired, adminOnly)

	admin.GET("/config", handler.GetConfig)
	admin.GET("/configs", handler.ListConfigs)
	admin.PUT("/config", handler.UpsertConfig)
	admin.GET("/segment", handler.GetSegmentStats)
	admin.POST("/snapshot", handler.ExportSnapshot)
	admin.GET("/psps", handler.ListPSPs)
	admin.PUT("/psps", handler.UpsertPSP)
	admin.POST("/lessons", handler.AddLesson)
	admin.GET("/lessons", handler.SearchLessons)
	admin.GET("/decisions/:decision_id/outcomes", handler.DecisionOutcomes)
}
