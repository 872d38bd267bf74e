package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/rankcache"
)

const statusOK = "ok"

func (s *Server) registerRoutes() {
	s.GET("/status", s.GetStatus)
	s.GET("/health", s.GetHealth)
	s.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.GET("/challenges/:id/ranking", s.GetRanking)
}

func (s *Server) GetStatus(c echo.Context) error {
	cp, err := s.st.Checkpoint(c.Request().Context())
	if err != nil {
		return fmt.Errorf("get checkpoint: %w", err)
	}
	return c.JSON(http.StatusOK, schema.GetStatusResponse{
		LatestBlockNumber: cp.BlockNumber,
		UpdatedAt:         cp.Timestamp,
	})
}

func (s *Server) GetHealth(c echo.Context) error {
	ctx := c.Request().Context()
	resp := schema.GetHealthResponse{MongoDB: statusOK, Redis: statusOK}
	code := http.StatusOK
	if err := s.st.Ping(ctx); err != nil {
		s.logger.Warn("mongodb health check failed", zap.Error(err))
		resp.MongoDB = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.rc.Ping(ctx); err != nil {
		s.logger.Warn("redis health check failed", zap.Error(err))
		resp.Redis = err.Error()
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (s *Server) GetRanking(c echo.Context) error {
	id := c.Param("id")
	var cache schema.RankingCache
	if err := rankcache.RetryLoadingCache(c.Request().Context(), func(ctx context.Context) error {
		var err error
		cache, err = s.rc.Load(ctx, id)
		return err
	}, s.cfg.CacheLoadTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return echo.NewHTTPError(http.StatusNotFound, "no ranking data found")
		}
		return fmt.Errorf("load ranking cache: %w", err)
	}
	if addr := strings.ToLower(c.QueryParam("address")); addr != "" {
		for _, u := range cache.Users {
			if u.Address == addr {
				return c.JSON(http.StatusOK, schema.RankingCache{
					ChallengeID: cache.ChallengeID,
					BlockNumber: cache.BlockNumber,
					Users:       []schema.RankingCacheUser{u},
					UpdatedAt:   cache.UpdatedAt,
				})
			}
		}
		return echo.NewHTTPError(http.StatusNotFound, "address not ranked")
	}
	return c.JSON(http.StatusOK, cache)
}
