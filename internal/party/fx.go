package party

import (
	"github.com/ironlot/settlement/internal/party/repository"
	"github.com/ironlot/settlement/internal/party/service"
	"go.uber.org/fx"
)

var Module = fx.Module("party.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
