// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/lodecms/lode/pkg/channels/gochannel"
	"github.com/lodecms/lode/pkg/channels/kafka"
	"github.com/lodecms/lode/pkg/eventbus"
)

// NewEventBus creates the run event bus. The in-process default serves a
// single instance; kafka fans run events out across instances.
func NewEventBus(provider string, logger *slog.Logger, kafkaBrokers string) eventbus.EventBus {
	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), kafkaBrokers, "lode")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
