package reports

import (
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	keyUserID  = "userID"
	keyYear    = "year"
	keyMonth   = "month"
	keyPeriod  = "period"
	keyText    = "text"
	keySuccess = "success"
	keyError   = "error"
)

// ReportRequest asks for the report of one month. A zero Year means the
// current month.
type ReportRequest struct {
	UserID string
	Year   int
	Month  time.Month
}

type ReportResult struct {
	UserID  string
	Period  string
	Text    string
	Success bool
	Error   string
}

func (r ReportRequest) Marshal() ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		keyUserID: r.UserID,
		keyYear:   r.Year,
		keyMonth:  int(r.Month),
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal report request")
	}
	return proto.Marshal(s)
}

func UnmarshalReportRequest(raw []byte) (ReportRequest, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(raw, &s); err != nil {
		return ReportRequest{}, errors.Wrap(err, "unmarshal report request")
	}
	fields := s.GetFields()

	req := ReportRequest{
		UserID: fields[keyUserID].GetStringValue(),
		Year:   int(fields[keyYear].GetNumberValue()),
		Month:  time.Month(fields[keyMonth].GetNumberValue()),
	}
	if req.UserID == "" {
		return ReportRequest{}, errors.New("report request without user")
	}
	if req.Year != 0 && (req.Month < time.January || req.Month > time.December) {
		return ReportRequest{}, errors.Errorf("report request with month %d", req.Month)
	}
	return req, nil
}

func (r ReportResult) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		keyUserID:  r.UserID,
		keyPeriod:  r.Period,
		keyText:    r.Text,
		keySuccess: r.Success,
		keyError:   r.Error,
	})
}

func resultFromStruct(s *structpb.Struct) ReportResult {
	fields := s.GetFields()
	return ReportResult{
		UserID:  fields[keyUserID].GetStringValue(),
		Period:  fields[keyPeriod].GetStringValue(),
		Text:    fields[keyText].GetStringValue(),
		Success: fields[keySuccess].GetBoolValue(),
		Error:   fields[keyError].GetStringValue(),
	}
}

func operationStatus(err error) *structpb.Struct {
	fields := map[string]*structpb.Value{keySuccess: structpb.NewBoolValue(err == nil)}
	if err != nil {
		fields[keyError] = structpb.NewStringValue(err.Error())
	}
	return &structpb.Struct{Fields: fields}
}
