package events

import (
	invoicedomain "github.com/ironlot/settlement/internal/invoice/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("events",
	fx.Provide(NewDispatcher),
	fx.Provide(func(d *Dispatcher) invoicedomain.EventPublisher { return d }),
)
