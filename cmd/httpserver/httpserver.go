// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/fx-bank/internal/accountdelivery"
	"github.com/go-petr/fx-bank/internal/accountrepo"
	"github.com/go-petr/fx-bank/internal/accountservice"
	"github.com/go-petr/fx-bank/internal/auditrepo"
	"github.com/go-petr/fx-bank/internal/auditservice"
	"github.com/go-petr/fx-bank/internal/fxdelivery"
	"github.com/go-petr/fx-bank/internal/fxrepo"
	"github.com/go-petr/fx-bank/internal/fxservice"
	"github.com/go-petr/fx-bank/internal/idempotencyrepo"
	"github.com/go-petr/fx-bank/internal/ledgerrepo"
	"github.com/go-petr/fx-bank/internal/middleware"
	"github.com/go-petr/fx-bank/internal/transferdelivery"
	"github.com/go-petr/fx-bank/internal/transferrepo"
	"github.com/go-petr/fx-bank/internal/transferservice"
	"github.com/go-petr/fx-bank/pkg/configpkg"
	"github.com/go-petr/fx-bank/pkg/currencypkg"
	"github.com/go-petr/fx-bank/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, rdb *redis.Client, queue transferservice.TaskQueue, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	accountRepo := accountrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn)
	keyRepo := idempotencyrepo.NewRepoPGS(conn)
	ledgerRepo := ledgerrepo.NewRepoPGS(conn)
	fxRepo := fxrepo.NewRepoPGS(conn)
	auditRepo := auditrepo.NewRepoPGS(conn)

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	defaultFixed, err := decimal.NewFromString(config.DefaultFixedCommission)
	if err != nil {
		return nil, errors.New("cannot parse default fixed commission")
	}

	defaultPercentage, err := decimal.NewFromString(config.DefaultPercentageCommission)
	if err != nil {
		return nil, errors.New("cannot parse default percentage commission")
	}

	accountService := accountservice.New(accountRepo, ledgerRepo)
	auditService := auditservice.New(auditRepo)
	fxService := fxservice.New(fxRepo, fxservice.NewRedisCache(rdb), config.RateAPIURL, config.RateCacheTTL)
	transferService := transferservice.New(transferRepo, keyRepo, accountService, fxService, queue, auditService,
		transferservice.Config{
			Queue:                       config.TransferQueue,
			RateTimeout:                 config.RateRequestTimeout,
			DefaultFixedCommission:      defaultFixed,
			DefaultPercentageCommission: defaultPercentage,
		})

	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)
	fxHandler := fxdelivery.NewHandler(fxService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts/:id", accountHandler.Get)
	authRoutes.GET("/accounts", accountHandler.List)
	authRoutes.GET("/accounts/:id/entries", accountHandler.ListEntries)

	authRoutes.POST("/transfers", transferHandler.Create)
	authRoutes.GET("/transfers/:id", transferHandler.Get)
	authRoutes.GET("/transfers", transferHandler.List)

	authRoutes.GET("/rates/:base/:quote", fxHandler.GetRate)
	authRoutes.GET("/currencies", fxHandler.ListCurrencies)
	authRoutes.POST("/rates/refresh", fxHandler.Refresh)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("currency", currencypkg.ValidCurrency)
		if err != nil {
			return nil, errors.New("cannot register currency validator")
		}
	}

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
