package api

import (
	_ "stablevault/docs"
	"stablevault/internal/identity"
	liquidationhandler "stablevault/internal/liquidation/handler"
	oraclehandler "stablevault/internal/oracle/handler"
	vaulthandler "stablevault/internal/vault/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagger "github.com/swaggo/http-swagger"
)

func NewRouter(
	positionHandler *vaulthandler.Handler,
	liquidationHandler *liquidationhandler.Handler,
	priceHandler *oraclehandler.Handler,
) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))
	router.Use(identity.Middleware)

	// Swagger UI and metrics
	router.Get("/swagger/*", swagger.WrapHandler)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/positions", positionHandler.Open)
		r.Get("/positions/{id:[0-9]+}", positionHandler.Get)
		r.Post("/positions/{id:[0-9]+}/deposit", positionHandler.Deposit)
		r.Post("/positions/{id:[0-9]+}/withdraw", positionHandler.Withdraw)
		r.Post("/positions/{id:[0-9]+}/mint", positionHandler.Mint)
		r.Post("/positions/{id:[0-9]+}/repay", positionHandler.Repay)
		r.Get("/positions/{id:[0-9]+}/health", positionHandler.HealthFactor)
		r.Get("/positions/{id:[0-9]+}/liquidatable", positionHandler.IsLiquidatable)

		r.Get("/liquidations/positions", liquidationHandler.ListLiquidatable)
		r.Post("/liquidations", liquidationHandler.Liquidate)
		r.Get("/liquidations/config", liquidationHandler.GetConfig)
		r.Put("/liquidations/config", liquidationHandler.UpdateConfig)
		r.Post("/liquidations/liquidators", liquidationHandler.AddLiquidator)
		r.Get("/liquidations/events", liquidationHandler.ListEvents)

		r.Get("/prices/assets", priceHandler.SupportedAssets)
		r.Get("/prices/{asset:[A-Za-z]+}", priceHandler.GetPrice)
	})
	return router
}
