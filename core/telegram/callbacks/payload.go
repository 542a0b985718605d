// Package callbacks encodes and decodes the data carried by inline buttons.
//
// A payload names the module it belongs to, the action inside that module and
// optional positional arguments. On the wire it uses telebot's callback layout,
// "\f<module>|<action>|<arg>...", with every segment path-escaped so that ids
// containing the separator survive a round trip.
package callbacks

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// MaxDataLen is Telegram's limit for callback_data in bytes.
	MaxDataLen = 64

	prefix = "\f"
	sep    = "|"
)

var (
	// ErrMalformed is returned for data that is not a valid payload.
	ErrMalformed = errors.New("callbacks: malformed payload")
	// ErrTooLong is returned when the encoded payload exceeds MaxDataLen.
	ErrTooLong = errors.New("callbacks: payload too long")
)

// Payload is the structured content of a button press.
type Payload struct {
	Module string
	Action string
	Args   []string
}

// New builds a payload.
func New(module, action string, args ...string) Payload {
	return Payload{Module: module, Action: action, Args: args}
}

// Arg returns the i-th argument or "".
func (p Payload) Arg(i int) string {
	if i < 0 || i >= len(p.Args) {
		return ""
	}
	return p.Args[i]
}

// Key returns "module|action" used for route lookup and logs.
func (p Payload) Key() string {
	return p.Module + sep + p.Action
}

func (p Payload) String() string {
	if len(p.Args) == 0 {
		return p.Key()
	}
	return p.Key() + sep + strings.Join(p.Args, sep)
}

// Encode renders the payload as callback data.
func Encode(p Payload) (string, error) {
	if p.Module == "" || p.Action == "" {
		return "", fmt.Errorf("%w: module and action are required", ErrMalformed)
	}
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(url.PathEscape(p.Module))
	b.WriteString(sep)
	b.WriteString(url.PathEscape(p.Action))
	for _, a := range p.Args {
		b.WriteString(sep)
		b.WriteString(url.PathEscape(a))
	}
	if b.Len() > MaxDataLen {
		return "", fmt.Errorf("%w: %d bytes for %s", ErrTooLong, b.Len(), p.Key())
	}
	return b.String(), nil
}

// Decode parses callback data produced by Encode. The leading "\f" is optional.
func Decode(data string) (Payload, error) {
	raw := strings.TrimPrefix(data, prefix)
	if raw == "" {
		return Payload{}, ErrMalformed
	}
	parts := strings.Split(raw, sep)
	if len(parts) < 2 {
		return Payload{}, ErrMalformed
	}
	for i, part := range parts {
		v, err := url.PathUnescape(part)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		parts[i] = v
	}
	p := Payload{Module: parts[0], Action: parts[1]}
	if p.Module == "" || p.Action == "" {
		return Payload{}, ErrMalformed
	}
	if len(parts) > 2 {
		p.Args = parts[2:]
	}
	return p, nil
}
