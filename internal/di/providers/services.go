package providers

import (
	"github.com/samber/do/v2"

	"github.com/colocapp/coloc-server/internal/config"
	"github.com/colocapp/coloc-server/internal/logger"
	"github.com/colocapp/coloc-server/internal/service"
)

// ProvideFlatService provides the flat registry service.
func ProvideFlatService(i do.Injector) (*service.FlatService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFlatService(storeHandle.Store, cfg.Flats.Policy(), log.Logger), nil
}

// ProvideJoinRequestService provides the join request ledger service.
func ProvideJoinRequestService(i do.Injector) (*service.JoinRequestService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewJoinRequestService(storeHandle.Store, log.Logger), nil
}

// ProvideEventService provides the event board service.
func ProvideEventService(i do.Injector) (*service.EventService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEventService(storeHandle.Store, log.Logger), nil
}
