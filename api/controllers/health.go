package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/inventory-backend/api/responses"
	"github.com/angelmondragon/inventory-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/inventory-backend/pkg/errors"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
)

const (
	envHeader        = "X-Inventory-Env"
	readinessTimeout = 3 * time.Second
)

// Pinger is satisfied by the database, redis and blob store clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently. Nil pingers are reported
// as disabled.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make([]string, len(names))
		failed := make([]error, len(names))
		var g errgroup.Group
		for i, name := range names {
			pinger := deps[name]
			if pinger == nil {
				results[i] = "disabled"
				continue
			}
			g.Go(func() error {
				if err := pinger.Ping(ctx); err != nil {
					results[i] = "unavailable"
					failed[i] = err
					return nil
				}
				results[i] = "ok"
				return nil
			})
		}
		_ = g.Wait()

		checks := make(map[string]string, len(names))
		var firstErr error
		for i, name := range names {
			checks[name] = results[i]
			if failed[i] != nil && firstErr == nil {
				firstErr = failed[i]
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "health.dependency_unavailable", failed[i])
				}
			}
		}

		if firstErr != nil {
			responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, firstErr, "dependency unavailable").
				WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
