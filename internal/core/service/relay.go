package service

import (
	"context"
	"errors"

	"github.com/Wyydra/ya-signal/internal/core/domain"
	"github.com/Wyydra/ya-signal/internal/core/port"
	"github.com/rs/zerolog/log"
)

// RelayService forwards negotiation payloads between two connections. It
// keeps no state and never looks inside the payload.
type RelayService struct {
	gateway port.RealTimeGateway
}

func NewRelayService(gateway port.RealTimeGateway) *RelayService {
	return &RelayService{gateway: gateway}
}

// Relay sends signal to the connection to, tagged with its origin. A missing
// target is not an error.
func (s *RelayService) Relay(ctx context.Context, from, to domain.ConnID, signal domain.Signal) error {
	if to == "" {
		return &domain.ProtocolError{Event: domain.EventWebRTCSignal, Field: "to", Err: domain.ErrMissingField}
	}

	err := s.gateway.Send(ctx, to, domain.NewEvent(domain.EventWebRTCSignal, domain.SignalPayload{
		From:   from,
		Signal: signal,
	}))
	if errors.Is(err, domain.ErrConnectionNotFound) {
		log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Signal target gone, dropping")
		return nil
	}
	if err != nil {
		return err
	}

	log.Debug().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("signal_type", string(signal.Type())).
		Msg("Signal relayed")
	return nil
}
