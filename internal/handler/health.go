package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker/pkg/respond"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports ok while the store answers a ping.
func Health(store Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
