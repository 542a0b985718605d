// Package ui describes what the console shows without tying it to Telegram:
// messages, inline menus and the Responder that delivers them.
package ui

import "github.com/m3rciful/cloudbot/core/telegram/callbacks"

// Button is a single inline button.
type Button struct {
	Text    string
	Payload callbacks.Payload
}

// Btn is shorthand for a button bound to module/action/args.
func Btn(text, module, action string, args ...string) Button {
	return Button{Text: text, Payload: callbacks.New(module, action, args...)}
}

// Menu is an inline keyboard, row by row.
type Menu struct {
	Rows [][]Button
}

// Grid lays buttons out with up to perRow buttons on each row.
func Grid(buttons []Button, perRow int) *Menu {
	if perRow <= 0 {
		perRow = 1
	}
	m := &Menu{}
	for i := 0; i < len(buttons); i += perRow {
		end := min(i+perRow, len(buttons))
		m.Rows = append(m.Rows, append([]Button(nil), buttons[i:end]...))
	}
	return m
}

// Add appends a row.
func (m *Menu) Add(row ...Button) *Menu {
	if len(row) > 0 {
		m.Rows = append(m.Rows, row)
	}
	return m
}

// Buttons returns all buttons in display order.
func (m *Menu) Buttons() []Button {
	if m == nil {
		return nil
	}
	var out []Button
	for _, row := range m.Rows {
		out = append(out, row...)
	}
	return out
}

// Message is an outgoing chat message. HTML text must be escaped by the caller.
type Message struct {
	Text string
	HTML bool
	Menu *Menu
}

// Text builds a plain message.
func Text(s string) Message {
	return Message{Text: s}
}

// HTML builds a message rendered with Telegram's HTML parse mode.
func HTML(s string) Message {
	return Message{Text: s, HTML: true}
}

// WithMenu attaches a menu.
func (m Message) WithMenu(menu *Menu) Message {
	m.Menu = menu
	return m
}

// Responder delivers output for the event being handled.
type Responder interface {
	// Send posts a new message to the chat.
	Send(m Message) error
	// Edit replaces the message the pressed button belongs to; for text
	// events it behaves like Send.
	Edit(m Message) error
	// Answer acknowledges a button press, optionally with a toast.
	Answer(text string) error
	// DeleteIncoming removes the user's message, used for secrets.
	DeleteIncoming() error
}
