package messages

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	commandParts = 2
	dateLayout   = "02.01.2006"
	userIDBase   = 10
)

func parseCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	split := strings.SplitN(text, " ", commandParts)

	if len(split) == commandParts {
		return split[0], strings.TrimSpace(split[1])
	}
	if strings.HasPrefix(text, "/") {
		return text, ""
	}
	return "", text
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, userIDBase)
}

func chatID(userKey string) (int64, error) {
	id, err := strconv.ParseInt(userKey, userIDBase, 64)
	if err != nil {
		return 0, errors.Wrap(err, "not a telegram user")
	}
	return id, nil
}

// parsePeriod reads a month in layout. An empty argument yields year 0, the
// current month.
func parsePeriod(arg, layout string, loc *time.Location) (int, time.Month, error) {
	if arg == "" {
		return 0, 0, nil
	}
	t, err := time.ParseInLocation(layout, arg, loc)
	if err != nil {
		return 0, 0, errors.Wrap(err, "parse period")
	}
	return t.Year(), t.Month(), nil
}
