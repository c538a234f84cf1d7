// Package report aggregates replication activity for the admin dashboard:
// daily change and conflict counts, cross-backend product comparison, and a
// guarded ad-hoc query runner
package report

import (
	"context"
	"time"

	"syncfabric/internal/platform/logger"
	"syncfabric/internal/platform/store"
)

// Engines is the slice of the registry the service needs
type Engines interface {
	Engine(ctx context.Context, tag store.Tag) (store.Handle, error)
	Control(ctx context.Context) (store.Handle, error)
}

// Service reads aggregates from the control backend and row samples from all
// backends. Per-backend read failures degrade to zeros so one offline
// backend never blanks the dashboard.
type Service struct {
	Engines Engines
	Log     *logger.Logger
}

func New(engines Engines, log *logger.Logger) *Service {
	if engines == nil {
		panic("report.Service requires engines")
	}
	if log == nil {
		log = logger.Named("report")
	}
	return &Service{Engines: engines, Log: log}
}

// dateString renders a scanned DATE value the way every driver hands it back
func dateString(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return ""
	}
}
