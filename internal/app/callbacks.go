package app

import (
	"fmt"
	"strconv"
	"strings"

	"hotel_ops_bot/internal/domain/event"
	"hotel_ops_bot/internal/domain/workitem"
)

// Callback payload prefixes attached to notification actions.
const (
	StartCallbackPrefix   = "wi_start_"
	HistoryCallbackPrefix = "wi_hist_"
	AckCallbackPrefix     = "ev_ack_"
)

var ErrMalformedCallback = fmt.Errorf("malformed callback data")

// StartCallbackData encodes a "start this work item" action: wi_start_<kind>_<id>.
func StartCallbackData(kind workitem.Kind, id int64) string {
	return fmt.Sprintf("%s%s_%d", StartCallbackPrefix, kind, id)
}

// ParseStartCallback is the inverse of StartCallbackData.
func ParseStartCallback(data string) (workitem.Kind, int64, error) {
	return parseItemCallback(StartCallbackPrefix, data)
}

// HistoryCallbackData encodes an audit history export request: wi_hist_<kind>_<id>.
func HistoryCallbackData(kind workitem.Kind, id int64) string {
	return fmt.Sprintf("%s%s_%d", HistoryCallbackPrefix, kind, id)
}

func ParseHistoryCallback(data string) (workitem.Kind, int64, error) {
	return parseItemCallback(HistoryCallbackPrefix, data)
}

func parseItemCallback(prefix, data string) (workitem.Kind, int64, error) {
	parts := strings.Split(strings.TrimPrefix(data, prefix), "_")
	if !strings.HasPrefix(data, prefix) || len(parts) != 2 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	kind, err := workitem.ParseKind(parts[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad id in %q", ErrMalformedCallback, data)
	}
	return kind, id, nil
}

// AckCallbackData encodes an alarm acknowledgement: ev_ack_<event>_<dept>_<type>.
// The department may itself contain underscores.
func AckCallbackData(eventID int64, department string, t event.AlarmType) string {
	return fmt.Sprintf("%s%d_%s_%s", AckCallbackPrefix, eventID, department, t)
}

// ParseAckCallback is the inverse of AckCallbackData.
func ParseAckCallback(data string) (int64, string, event.AlarmType, error) {
	if !strings.HasPrefix(data, AckCallbackPrefix) {
		return 0, "", "", fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	parts := strings.Split(strings.TrimPrefix(data, AckCallbackPrefix), "_")
	if len(parts) < 3 {
		return 0, "", "", fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	eventID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("%w: bad event id in %q", ErrMalformedCallback, data)
	}
	alarmType, err := event.ParseAlarmType(parts[len(parts)-1])
	if err != nil {
		return 0, "", "", err
	}
	department := strings.Join(parts[1:len(parts)-1], "_")
	if department == "" {
		return 0, "", "", fmt.Errorf("%w: empty department in %q", ErrMalformedCallback, data)
	}
	return eventID, department, alarmType, nil
}
