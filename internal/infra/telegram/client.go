// internal/infra/telegram/client.go
package telegram

import (
	"context"

	"hotel_ops_bot/internal/domain/notification"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter is the Telegram notification channel over gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

func (tba *TelebotAdapter) Name() notification.ChannelHint {
	return notification.ChannelTelegram
}

// Deliver sends the message to the recipient's private chat. Actions become one row of
// inline buttons carrying their callback data.
func (tba *TelebotAdapter) Deliver(ctx context.Context, recipientID int64, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	options := &telebot.SendOptions{}
	if markup := actionMarkup(msg.Actions); markup != nil {
		options.ReplyMarkup = markup
	}

	recipient := &telebot.User{ID: recipientID} // Staff are reached in their direct chat
	_, err := tba.bot.Send(recipient, msg.Text(), options)
	return err
}

func actionMarkup(actions []notification.Action) *telebot.ReplyMarkup {
	if len(actions) == 0 {
		return nil
	}
	replyMarkup := &telebot.ReplyMarkup{}
	btns := make([]telebot.Btn, 0, len(actions))
	for _, a := range actions {
		btns = append(btns, telebot.Btn{Text: a.Label, Data: a.Data})
	}
	replyMarkup.Inline(replyMarkup.Row(btns...))
	return replyMarkup
}
