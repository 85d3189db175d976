// Package aiutil holds small helpers shared by the companion packages.
package aiutil

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggerFromContext returns the logger attached to ctx when it is enabled,
// otherwise fallback. Fields of the returned logger are tagged with component.
func LoggerFromContext(ctx context.Context, fallback zerolog.Logger, component string) zerolog.Logger {
	log := fallback
	if ctx != nil {
		if ctxLog := zerolog.Ctx(ctx); ctxLog.GetLevel() != zerolog.Disabled {
			log = *ctxLog
		}
	}
	if component == "" {
		return log
	}
	return log.With().Str("component", component).Logger()
}
