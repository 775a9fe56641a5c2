package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IBM/sarama"

	"github.com/civicworks/notifyhub/pkg/notify"
)

// NewKafkaProducer creates an idempotent sync producer that waits for all
// in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	cfg := sarama.NewConfig()
	cfg.ClientID = "notifyhub"
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Net.MaxOpenRequests = 1
	return sarama.NewSyncProducer(brokers, cfg)
}

// Kafka publishes bus messages to a topic keyed by recipient, keeping each
// recipient's notices ordered within a partition.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafka(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Publish(ctx context.Context, msg notify.BusMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Join(ErrPublish, err)
	}
	pm := &sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.StringEncoder(msg.RecipientID),
		Value:     sarama.ByteEncoder(payload),
		Headers:   []sarama.RecordHeader{{Key: []byte("name"), Value: []byte(msg.Name)}},
		Timestamp: msg.At,
	}

	// SendMessage does not take a context; the send keeps running in the
	// background if ctx ends first.
	done := make(chan error, 1)
	go func() {
		_, _, err := k.producer.SendMessage(pm)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return errors.Join(ErrPublish, ctx.Err())
	case err := <-done:
		if err != nil {
			return errors.Join(ErrPublish, err)
		}
		return nil
	}
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}

