package helpers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/cloudbot/core/logger"
	"github.com/m3rciful/cloudbot/core/telegram/keyboard"
	"github.com/m3rciful/cloudbot/core/telegram/sender"
	"github.com/m3rciful/cloudbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// Responder delivers console output for one update through the outbound
// dispatcher. It implements ui.Responder.
type Responder struct {
	c    tele.Context
	ctx  context.Context
	disp *sender.Dispatcher
}

// NewResponder binds a responder to the update in c. A nil dispatcher sends
// synchronously.
func NewResponder(c tele.Context, disp *sender.Dispatcher) *Responder {
	return &Responder{c: c, ctx: BuildContext(c), disp: disp}
}

func (r *Responder) chatID() int64 {
	if chat := r.c.Chat(); chat != nil {
		return chat.ID
	}
	if user := r.c.Sender(); user != nil {
		return user.ID
	}
	return 0
}

func (r *Responder) async(action, endpoint string, run func() error) error {
	if r.disp == nil {
		return run()
	}
	if err := r.disp.Enqueue(r.ctx, r.chatID(), action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(r.ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func sendOptions(m ui.Message) (*tele.SendOptions, error) {
	opts := &tele.SendOptions{DisableWebPagePreview: true}
	if m.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	if m.Menu != nil {
		markup, err := keyboard.FromMenu(m.Menu)
		if err != nil {
			return nil, err
		}
		opts.ReplyMarkup = markup
	}
	return opts, nil
}

// Send posts m as a new message.
func (r *Responder) Send(m ui.Message) error {
	opts, err := sendOptions(m)
	if err != nil {
		return err
	}
	return r.async("send.text", "sendMessage", func() error {
		return r.c.Send(m.Text, opts)
	})
}

// Edit replaces the message of the pressed button. Text updates have no such
// message, so m is sent instead.
func (r *Responder) Edit(m ui.Message) error {
	if r.c.Callback() == nil || r.c.Callback().Message == nil {
		return r.Send(m)
	}
	opts, err := sendOptions(m)
	if err != nil {
		return err
	}
	return r.async("edit.text", "editMessageText", func() error {
		err := r.c.Edit(m.Text, opts)
		if errors.Is(err, tele.ErrSameMessageContent) {
			return nil
		}
		return err
	})
}

// Answer acknowledges a button press; it does nothing for text updates.
func (r *Responder) Answer(text string) error {
	if r.c.Callback() == nil {
		return nil
	}
	return r.async("callback.answer", "answerCallbackQuery", func() error {
		return r.c.Respond(&tele.CallbackResponse{Text: text})
	})
}

// DeleteIncoming removes the user's message.
func (r *Responder) DeleteIncoming() error {
	if r.c.Message() == nil || r.c.Callback() != nil {
		return nil
	}
	return r.async("delete.message", "deleteMessage", func() error {
		return r.c.Delete()
	})
}

var _ ui.Responder = (*Responder)(nil)
