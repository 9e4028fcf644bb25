// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saferoute/internal/http/handlers"
	"saferoute/internal/http/middleware"
	"saferoute/internal/infra"
	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/reports"
	"saferoute/internal/modules/routes"
)

type Deps struct {
	Places   handlers.PlaceSearcher
	Routes   *routes.Service
	Sessions *navigation.Manager
	// Reports may be nil when no database is configured.
	Reports *reports.Service
	// Verifier enables Firebase auth on /api when set.
	Verifier infra.TokenVerifier
	Logger   *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(d.Logger), middleware.Logging(d.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	if d.Verifier != nil {
		api.Use(middleware.Auth(d.Verifier))
	}

	placesHandler := handlers.NewPlacesHandler(d.Places)
	api.GET("/places/search", placesHandler.Search)

	routesHandler := handlers.NewRoutesHandler(d.Routes)
	api.POST("/routes/search", routesHandler.Search)
	api.GET("/routes/selections/:id", routesHandler.Get)

	navHandler := handlers.NewNavigationHandler(d.Routes, d.Sessions)
	api.POST("/navigation/sessions", navHandler.Start)
	api.GET("/navigation/sessions/:id", navHandler.Get)
	api.PUT("/navigation/sessions/:id/position", navHandler.Position)
	api.PUT("/navigation/sessions/:id/heading", navHandler.Heading)
	api.PUT("/navigation/sessions/:id/voice", navHandler.Voice)
	api.DELETE("/navigation/sessions/:id", navHandler.End)

	reportsHandler := handlers.NewReportsHandler(d.Reports)
	api.POST("/reports", reportsHandler.Submit)
	api.GET("/reports", reportsHandler.Recent)

	return r
}
