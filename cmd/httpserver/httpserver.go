// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jameelag1995/banking-backend/internal/accountdelivery"
	"github.com/jameelag1995/banking-backend/internal/accountrepo"
	"github.com/jameelag1995/banking-backend/internal/accountservice"
	"github.com/jameelag1995/banking-backend/internal/eventskafka"
	"github.com/jameelag1995/banking-backend/internal/middleware"
	"github.com/jameelag1995/banking-backend/pkg/configpkg"
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
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	minimumAmount, err := decimal.NewFromString(config.MinimumAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid MINIMUM_AMOUNT %q: %w", config.MinimumAmount, err)
	}

	var accountRepo accountservice.Repo
	if config.DBDriver == "memory" {
		accountRepo = accountrepo.NewRepoMem()
	} else {
		accountRepo = accountrepo.NewRepoPGS(conn)
	}

	var events accountservice.EventPublisher
	if brokers := config.BrokerList(); len(brokers) > 0 {
		events = eventskafka.NewPublisher(brokers)
	}

	accountService := accountservice.New(accountRepo, events, minimumAmount)
	accountHandler := accountdelivery.NewHandler(accountService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.GET("/", accountHandler.APIInfo)
	engine.GET("/accounts", accountHandler.List)
	engine.GET("/accounts/active", accountHandler.ListActive)
	engine.GET("/accounts/inactive", accountHandler.ListInactive)
	engine.GET("/accounts/by-email", accountHandler.GetByEmail)
	engine.GET("/accounts/filter/by", accountHandler.Filter)
	engine.GET("/accounts/:id", accountHandler.Get)
	engine.POST("/accounts", accountHandler.Create)

	engine.PUT("/accounts/deposit/:id", accountHandler.Deposit)
	engine.PUT("/accounts/update-credit/:id", accountHandler.UpdateCredit)
	engine.PUT("/accounts/withdraw/:id", accountHandler.Withdraw)
	engine.PUT("/accounts/transfer", accountHandler.Transfer)
	engine.PUT("/accounts/activate/:id", accountHandler.Activate)
	engine.PUT("/accounts/deactivate/:id", accountHandler.Deactivate)

	engine.DELETE("/accounts/delete/:id", accountHandler.Delete)

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
