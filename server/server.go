package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/config"
	"github.com/b-harvest/stele-backend/service/rankcache"
	"github.com/b-harvest/stele-backend/service/store"
)

// Store is the entity store the server reads from.
type Store interface {
	store.Store
	Ping(ctx context.Context) error
}

type Server struct {
	*echo.Echo
	cfg    config.ServerConfig
	st     Store
	rc     *rankcache.Service
	logger *zap.Logger
}

func New(cfg config.ServerConfig, st Store, rc *rankcache.Service, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	s := &Server{e, cfg, st, rc, logger}
	s.registerRoutes()
	return s
}

func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}
