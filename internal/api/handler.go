package api

import (
	"log/slog"

	"github.com/shaiso/Orkestra/internal/domain"
	"github.com/shaiso/Orkestra/internal/mq"
	"github.com/shaiso/Orkestra/internal/orchestrator"
	"github.com/shaiso/Orkestra/internal/store"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	registry  *domain.Registry
	orch      *orchestrator.Orchestrator
	store     store.Store
	publisher *mq.Publisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Registry  *domain.Registry
	Orch      *orchestrator.Orchestrator
	Store     store.Store
	Publisher *mq.Publisher
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		registry:  cfg.Registry,
		orch:      cfg.Orch,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}
