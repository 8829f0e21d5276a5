package events

import (
	"time"

	"github.com/IBM/sarama"

	"delivery-auction/utils"
)

// Publisher emits auction lifecycle events to downstream consumers
type Publisher interface {
	Publish(topic string, message []byte) error
}

// ResolvedEvent is the payload published after a successful resolution
type ResolvedEvent struct {
	AuctionID string    `json:"auction_id"`
	OrderID   string    `json:"order_id"`
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount,omitempty"`
	Memo      string    `json:"memo,omitempty"`
	ClosedAt  time.Time `json:"closed_at"`
}

// SaramaPublisher sends events through a Kafka sync producer
type SaramaPublisher struct {
	producer sarama.SyncProducer
}

func NewSaramaPublisher(brokers []string) (*SaramaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &SaramaPublisher{producer: prod}, nil
}

func (p *SaramaPublisher) Publish(topic string, message []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(message),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return err
	}
	utils.Info("event published", map[string]any{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
	})
	return nil
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops events; used when no brokers are configured
type NopPublisher struct{}

func (NopPublisher) Publish(string, []byte) error { return nil }
