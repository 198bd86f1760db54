package kafka

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/reports"
)

type consumerConfig interface {
	producerConfig
	ConsumerGroup() string
}

type reportGenerator interface {
	GenerateReport(ctx context.Context, req reports.ReportRequest) (reports.ReportResult, error)
}

type reportSender interface {
	SendReport(ctx context.Context, report reports.ReportResult) error
}

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topic         string
	generator     reportGenerator
	sender        reportSender
}

func NewConsumer(cfg consumerConfig, generator reportGenerator, sender reportSender) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_5_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers(), cfg.ConsumerGroup(), config)
	return &Consumer{
		consumerGroup: consumerGroup,
		topic:         cfg.ReportsTopic(),
		generator:     generator,
		sender:        sender,
	}, err
}

func (c *Consumer) StartConsuming(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("consume from %s", c.topic))
			}
		}
	}
}

func (c *Consumer) Close() {
	if err := c.consumerGroup.Close(); err != nil {
		logger.Error("failed to close consumer group", zap.Error(err))
	}
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - setup")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	logger.Info("consumer - cleanup")
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		req, err := reports.UnmarshalReportRequest(message.Value)
		if err != nil {
			logger.Error("cannot unmarshal kafka message", zap.Error(err))
		} else {
			logger.Info(
				"received report request",
				zap.ByteString("key", message.Key),
				zap.String("userID", req.UserID),
				zap.Int("year", req.Year),
				zap.Int("month", int(req.Month)),
			)
			c.processRequest(session.Context(), req)
		}
		session.MarkMessage(message, "")
	}

	return nil
}

// processRequest forwards failed reports too, so the user learns the request
// did not go through.
func (c *Consumer) processRequest(ctx context.Context, req reports.ReportRequest) {
	report, err := c.generator.GenerateReport(ctx, req)
	if err != nil {
		logger.Error("failed to generate report", zap.Error(err), zap.String("userID", req.UserID))
	}
	err = c.sender.SendReport(ctx, report)
	if err != nil {
		logger.Error("failed to send report", zap.Error(err))
	}
}
