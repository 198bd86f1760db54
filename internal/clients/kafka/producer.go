package kafka

import (
	"context"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/reports"
)

type producerConfig interface {
	Brokers() []string
	ReportsTopic() string
}

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(cfg producerConfig) (*Producer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_5_0_0
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers(), config)
	return &Producer{
		producer: producer,
		topic:    cfg.ReportsTopic(),
	}, err
}

// RequestReport queues a report request. Requests of one user share a key and
// so a partition, which keeps them ordered.
func (p *Producer) RequestReport(_ context.Context, req reports.ReportRequest) error {
	message, err := req.Marshal()
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(req.UserID),
		Value: sarama.ByteEncoder(message),
	})
	if err != nil {
		return errors.Wrap(err, "produce report request")
	}
	logger.Info("report requested", zap.String("userID", req.UserID), zap.String("topic", p.topic))
	return nil
}

func (p *Producer) Close() {
	err := p.producer.Close()
	if err != nil {
		logger.Error("failed to close producer", zap.Error(err))
	}
}
