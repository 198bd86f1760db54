package reports

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func Test_ReportRequest_RoundTrip(t *testing.T) {
	raw, err := ReportRequest{UserID: "u1", Year: 2024, Month: time.March}.Marshal()
	require.NoError(t, err)

	req, err := UnmarshalReportRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, ReportRequest{UserID: "u1", Year: 2024, Month: time.March}, req)
}

func Test_UnmarshalReportRequest_Rejects(t *testing.T) {
	noUser, err := ReportRequest{Year: 2024, Month: time.March}.Marshal()
	require.NoError(t, err)
	badMonth, err := ReportRequest{UserID: "u1", Year: 2024, Month: 13}.Marshal()
	require.NoError(t, err)

	for name, raw := range map[string][]byte{
		"no user":   noUser,
		"bad month": badMonth,
		"garbage":   []byte{0xff, 0x01},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalReportRequest(raw)
			assert.Error(t, err)
		})
	}
}

type acceptorFunc func(ctx context.Context, report ReportResult) error

func (f acceptorFunc) AcceptReport(ctx context.Context, report ReportResult) error {
	return f(ctx, report)
}

func startAcceptor(t *testing.T, acceptor reportAcceptor) *Sender {
	t.Helper()
	lis := bufconn.Listen(1 << 16)
	server := newServer(lis, acceptor)
	go func() { _ = server.Serve() }()
	t.Cleanup(server.Shutdown)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	sender := &Sender{conn: conn}
	t.Cleanup(sender.Close)
	return sender
}

func Test_SendReport_DeliversToAcceptor(t *testing.T) {
	received := make(chan ReportResult, 1)
	sender := startAcceptor(t, acceptorFunc(func(_ context.Context, report ReportResult) error {
		received <- report
		return nil
	}))

	sent := ReportResult{UserID: "u1", Period: "03.2024", Text: "March 2024", Success: true}
	require.NoError(t, sender.SendReport(context.Background(), sent))
	assert.Equal(t, sent, <-received)
}

func Test_SendReport_ReturnsAcceptorError(t *testing.T) {
	sender := startAcceptor(t, acceptorFunc(func(context.Context, ReportResult) error {
		return errors.New("chat not found")
	}))

	err := sender.SendReport(context.Background(), ReportResult{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
