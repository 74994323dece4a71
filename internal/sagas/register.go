package sagas

import (
	"log/slog"

	"github.com/shaiso/Orkestra/internal/domain"
)

// RegisterBuiltins регистрирует встроенные саги в реестре.
func RegisterBuiltins(reg *domain.Registry, logger *slog.Logger) error {
	for _, def := range []*domain.Definition{
		OrderSaga(logger),
	} {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
