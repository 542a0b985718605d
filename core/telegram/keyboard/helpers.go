// Package keyboard converts console menus into Telegram inline keyboards.
package keyboard

import (
	"fmt"

	"github.com/m3rciful/cloudbot/core/telegram/callbacks"
	"github.com/m3rciful/cloudbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// InlineBtn describes a convenience wrapper for inline button properties.
// Data is the complete callback data, already encoded.
type InlineBtn struct {
	Text string
	Data string
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			// no Unique: telebot would prefix the data a second time
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// FromMenu encodes every button payload of m. A payload that does not fit
// Telegram's callback limit is an error rather than a silently broken button.
func FromMenu(m *ui.Menu) (*tele.ReplyMarkup, error) {
	rows := make([][]InlineBtn, 0, len(m.Rows))
	for _, row := range m.Rows {
		r := make([]InlineBtn, 0, len(row))
		for _, b := range row {
			data, err := callbacks.Encode(b.Payload)
			if err != nil {
				return nil, fmt.Errorf("keyboard: button %q: %w", b.Text, err)
			}
			r = append(r, InlineBtn{Text: b.Text, Data: data})
		}
		rows = append(rows, r)
	}
	return InlineButtonsRows(rows...), nil
}
