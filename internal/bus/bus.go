// Package bus provides event-driven messaging between the screening hot
// path and the background feedback machinery. Go channels serve the
// Community tier, NATS the Pro tier.
package bus

import (
	"fmt"

	"github.com/opencomm/shrike/internal/domain"
)

// New creates an event bus based on configuration.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel", "":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
