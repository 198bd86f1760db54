package messages

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"
	"max.ks1230/spending-tracker/internal/model/reports"
)

const somethingWrongMessage = "Sorry, something wrong happened...\n"

type messageSender interface {
	SendMessage(text string, userID int64) error
}

type Service struct {
	tgClient messageSender
	handler  *HandlerService
}

func NewService(tgClient messageSender, ledger expenseLedger, reports reportBuilder, requester reportRequester, config config) *Service {
	return &Service{
		tgClient: tgClient,
		handler:  newHandler(ledger, reports, requester, config),
	}
}

type Message struct {
	Text   string
	UserID int64
}

func (s *Service) HandleIncomingMessage(ctx context.Context, msg Message) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "handleMessage")
	defer span.Finish()

	command := s.handler.commandLabel(msg.Text)
	span.SetTag("command", command)

	start := time.Now()
	err := s.handle(ctx, msg)
	elapsed := time.Since(start)

	observeResponse(elapsed, err != nil, command)
	if err != nil {
		ext.Error.Set(span, true)
	}
	return err
}

func (s *Service) handle(ctx context.Context, msg Message) error {
	resp, err := s.handler.HandleMessage(ctx, msg.Text, msg.UserID)
	if err != nil {
		_ = s.tgClient.SendMessage(somethingWrongMessage+resp, msg.UserID)
		return err
	}
	return s.tgClient.SendMessage(resp, msg.UserID)
}

// AcceptReport relays a report built by the reporter to the chat it was
// requested from.
func (s *Service) AcceptReport(_ context.Context, report reports.ReportResult) error {
	logger.Info("AcceptReport - start", zap.String("userID", report.UserID), zap.String("period", report.Period))
	defer logger.Info("AcceptReport - end")

	userID, err := chatID(report.UserID)
	if err != nil {
		return errors.Wrap(err, "accept report")
	}
	if !report.Success {
		logger.Error("report generation failed", zap.String("error", report.Error))
		return s.tgClient.SendMessage(somethingWrongMessage+reportFailedMessage, userID)
	}
	return s.tgClient.SendMessage(report.Text, userID)
}
