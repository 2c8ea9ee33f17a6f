package service

import (
	"github.com/rs/zerolog"

	"qr-psp-gateway/internal/core/ports"
)

// providerRouter picks the fulfillment path from the merchant provider
// embedded in the QR payload. The comparison is exact and case sensitive;
// anything that is not our own provider goes to the Operator network.
type providerRouter struct {
	ownProvider string
	bank        ports.FulfillmentGateway
	operator    ports.FulfillmentGateway
	log         zerolog.Logger
}

// NewProviderRouter creates the router for the configured own provider id.
func NewProviderRouter(ownProvider string, bank, operator ports.FulfillmentGateway, log zerolog.Logger) ports.Router {
	return &providerRouter{
		ownProvider: ownProvider,
		bank:        bank,
		operator:    operator,
		log:         log,
	}
}

func (r *providerRouter) Route(merchantProvider string) ports.FulfillmentGateway {
	if merchantProvider == r.ownProvider {
		r.log.Debug().Str("provider", merchantProvider).Msg("router: own provider, bank path")
		return r.bank
	}
	r.log.Debug().Str("provider", merchantProvider).Msg("router: external provider, operator path")
	return r.operator
}
