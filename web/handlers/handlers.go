// Package handlers exposes the core components as a JSON API consumed
// by the bot front-end and the Telegram mini-app.
package handlers

import (
	"github.com/coffeebliss/catalog"
	"github.com/coffeebliss/config"
	"github.com/coffeebliss/loyalty"
	"github.com/coffeebliss/orders"
	"github.com/coffeebliss/store"
)

// Handler carries the core components; all handlers are thin glue on
// top of them.
type Handler struct {
	Store       *store.Store
	Ledger      *orders.Ledger
	Loyalty     *loyalty.Engine
	Syncer      *catalog.Syncer
	MenuFetcher catalog.Fetcher
	Cfg         *config.Config
}

// New creates a Handler over the given components
func New(st *store.Store, ledger *orders.Ledger, engine *loyalty.Engine,
	syncer *catalog.Syncer, menuFetcher catalog.Fetcher, cfg *config.Config) *Handler {
	return &Handler{
		Store:       st,
		Ledger:      ledger,
		Loyalty:     engine,
		Syncer:      syncer,
		MenuFetcher: menuFetcher,
		Cfg:         cfg,
	}
}
