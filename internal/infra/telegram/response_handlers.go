// internal/infra/telegram/response_handlers.go
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"hotel_ops_bot/internal/app"
	"hotel_ops_bot/internal/domain/event"
	"hotel_ops_bot/internal/domain/workitem"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// HistoryExporter writes a work item's audit history workbook.
type HistoryExporter interface {
	ExportWorkItemHistory(ctx context.Context, kind workitem.Kind, id int64, w io.Writer) error
}

// callbackReply is what the bot answers with. document is optional.
type callbackReply struct {
	text     string
	document *telebot.Document
}

type ResponseHandler struct {
	workItems app.WorkItemService
	alarms    app.EventAlarmDispatcher
	history   HistoryExporter
	logger    *logrus.Entry
}

func NewResponseHandler(workItems app.WorkItemService, alarms app.EventAlarmDispatcher, history HistoryExporter, logger *logrus.Entry) *ResponseHandler {
	return &ResponseHandler{
		workItems: workItems,
		alarms:    alarms,
		history:   history,
		logger:    logger.WithField("handler_group", "callbacks"),
	}
}

// RegisterResponseHandlers routes inline button presses to the state machine and the alarm dispatcher.
func RegisterResponseHandlers(ctx context.Context, b *telebot.Bot, h *ResponseHandler) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		// Buttons are built without a unique id, but tolerate the telebot "\f" marker anyway.
		data := strings.TrimPrefix(c.Callback().Data, "\f")

		reply, err := h.handle(ctx, c.Sender().ID, data)
		if err != nil {
			c.Bot().OnError(err, c)
		}
		if reply.document != nil {
			if sendErr := c.Send(reply.document); sendErr != nil {
				c.Bot().OnError(fmt.Errorf("error sending history export: %w", sendErr), c)
				return c.Respond(&telebot.CallbackResponse{Text: "Could not send the history file."})
			}
		}
		return c.Respond(&telebot.CallbackResponse{Text: reply.text})
	})
}

func (h *ResponseHandler) handle(ctx context.Context, senderID int64, data string) (callbackReply, error) {
	logCtx := h.logger.WithFields(logrus.Fields{"sender_id": senderID, "data": data})

	switch {
	case strings.HasPrefix(data, app.StartCallbackPrefix):
		kind, id, err := app.ParseStartCallback(data)
		if err != nil {
			return callbackReply{text: "Unknown action."}, fmt.Errorf("invalid start callback: %w", err)
		}
		if _, err := h.workItems.Start(ctx, kind, id, senderID); err != nil {
			logCtx.WithError(err).Warn("Start from callback refused")
			return callbackReply{text: startRefusal(err)}, nil
		}
		logCtx.Info("Work item started from callback")
		return callbackReply{text: "Marked as in progress."}, nil

	case strings.HasPrefix(data, app.AckCallbackPrefix):
		eventID, dept, alarmType, err := app.ParseAckCallback(data)
		if err != nil {
			return callbackReply{text: "Unknown action."}, fmt.Errorf("invalid ack callback: %w", err)
		}
		changed, err := h.alarms.Acknowledge(ctx, eventID, dept, alarmType, senderID)
		if err != nil {
			if errors.Is(err, event.ErrAlarmRecordNotFound) {
				return callbackReply{text: "This alarm is no longer active."}, nil
			}
			if errors.Is(err, event.ErrNotDepartmentMember) {
				logCtx.Warn("Acknowledgement from outside the department refused")
				return callbackReply{text: "Only staff of " + dept + " can acknowledge this alarm."}, nil
			}
			return callbackReply{text: "Something went wrong."}, fmt.Errorf("error acknowledging event %d for %s: %w", eventID, dept, err)
		}
		if !changed {
			return callbackReply{text: "Already acknowledged."}, nil
		}
		logCtx.Info("Event alarm acknowledged from callback")
		return callbackReply{text: "Acknowledged, thank you!"}, nil

	case strings.HasPrefix(data, app.HistoryCallbackPrefix):
		kind, id, err := app.ParseHistoryCallback(data)
		if err != nil {
			return callbackReply{text: "Unknown action."}, fmt.Errorf("invalid history callback: %w", err)
		}
		var buf bytes.Buffer
		if err := h.history.ExportWorkItemHistory(ctx, kind, id, &buf); err != nil {
			if errors.Is(err, workitem.ErrNotFound) {
				return callbackReply{text: "No history for this item."}, nil
			}
			return callbackReply{text: "Something went wrong."}, fmt.Errorf("error exporting history of %s %d: %w", kind, id, err)
		}
		doc := &telebot.Document{
			File:     telebot.FromReader(&buf),
			FileName: fmt.Sprintf("%s_%d_history.xlsx", kind, id),
			MIME:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}
		return callbackReply{text: "History sent.", document: doc}, nil
	}

	return callbackReply{text: "Unknown action."}, fmt.Errorf("unhandled callback data: %s", data)
}

func startRefusal(err error) string {
	switch {
	case errors.Is(err, workitem.ErrNotFound):
		return "This task no longer exists."
	case errors.Is(err, workitem.ErrInvalidTransition):
		return "This task can no longer be started."
	case errors.Is(err, workitem.ErrConcurrentModification):
		return "The task was just updated, please check it again."
	default:
		return "Something went wrong."
	}
}
