package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/vendoreval/procflow/pkg/channels/gochannel"
	"github.com/vendoreval/procflow/pkg/channels/kafka"
)

// NewPublisher selects the transition event channel: "memory" for the
// in-process GoChannel, "kafka" for the Kafka-backed channel.
func NewPublisher(logger *slog.Logger, channelType, serviceName, kafkaBrokers string) (message.Publisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch channelType {
	case "", "memory":
		publisher, _, err := gochannel.CreateChannel(wmLogger)

		return publisher, err
	case "kafka":
		publisher, _, err := kafka.CreateChannel(wmLogger, serviceName, strings.Split(kafkaBrokers, ","))

		return publisher, err
	default:
		return nil, fmt.Errorf("unsupported event channel type: %s", channelType)
	}
}
