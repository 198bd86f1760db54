package reports

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"max.ks1230/spending-tracker/internal/logger"
)

type Sender struct {
	conn *grpc.ClientConn
}

func NewSender(addr string) (*Sender, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errors.Wrap(err, "cannot initiate new connection")
	}
	return &Sender{conn: conn}, nil
}

func (s *Sender) Close() {
	err := s.conn.Close()
	if err != nil {
		logger.Error("failed to close grpc connection", zap.Error(err))
	}
}

func (s *Sender) SendReport(ctx context.Context, report ReportResult) error {
	logger.Info("SendReport - start", zap.String("userID", report.UserID))
	defer logger.Info("SendReport - end")

	in, err := report.toStruct()
	if err != nil {
		return errors.Wrap(err, "send report")
	}
	out := new(structpb.Struct)
	if err = s.conn.Invoke(ctx, acceptReportMethod, in, out); err != nil {
		return errors.Wrap(err, "send report")
	}
	if !out.GetFields()[keySuccess].GetBoolValue() {
		return errors.Errorf("report rejected: %s", out.GetFields()[keyError].GetStringValue())
	}
	return nil
}
