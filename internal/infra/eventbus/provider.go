package eventbus

import (
	"database/sql"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is eventbus providers.
var ProviderSet = wire.NewSet(
	NewKratosLoggerAdapter,
	NewEventBus,
	NewRouter,
	ProvideForwarder,
)

// ProvideForwarder creates a Forwarder over the shared SQL handle.
func ProvideForwarder(db *sql.DB, eventBus *EventBus, logger log.Logger) *Forwarder {
	return NewForwarder(db, eventBus.Publisher(), NewKratosLoggerAdapter(logger))
}
