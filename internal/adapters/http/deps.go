package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/roadcap/internal/adapters/postgres"
	"github.com/samirrijal/roadcap/internal/adapters/valkey"
	"github.com/samirrijal/roadcap/internal/core/ports"
	"github.com/samirrijal/roadcap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Views    *usecases.ViewService
	Bookings *usecases.BookingViewService
	Scenes   ports.SceneWatcher
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
