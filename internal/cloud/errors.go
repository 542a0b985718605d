package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/sdkerr"
)

// ErrUnauthorized matches API errors caused by rejected credentials.
var ErrUnauthorized = errors.New("cloud: credentials rejected")

// authCodes are gateway codes for signature or key failures.
var authCodes = map[string]struct{}{
	"APIGW.0101": {},
	"APIGW.0301": {},
	"APIGW.0303": {},
	"APIGW.0305": {},
	"APIGW.0306": {},
	"APIGW.0307": {},
}

// Error is a non-2xx response of the cloud API.
type Error struct {
	Status    int
	ErrorCode string
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	code := e.ErrorCode
	if code == "" {
		code = "-"
	}
	return fmt.Sprintf("cloud: status %d code %s: %s", e.Status, code, e.Message)
}

// UserMessage is the provider's message, shown to the user as is.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if t := http.StatusText(e.Status); t != "" {
		return t
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Code reports the provider error code, or HTTP_<status> without one.
func (e *Error) Code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	return fmt.Sprintf("HTTP_%d", e.Status)
}

// IsAuth reports whether the provider rejected the credentials.
func (e *Error) IsAuth() bool {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return true
	}
	_, ok := authCodes[e.ErrorCode]
	return ok
}

// Is lets errors.Is(err, ErrUnauthorized) match rejected credentials.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.IsAuth()
}

// IsAuthError reports whether err carries a credential rejection.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// InputError rejects a call before it is sent.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("cloud: %s %s", e.Field, e.Reason)
}

// UserMessage implements the chat error convention.
func (e *InputError) UserMessage() string {
	return e.Field + " " + e.Reason
}

// Code implements the err_code convention of the logs.
func (e *InputError) Code() string { return "INVALID_INPUT" }

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &InputError{Field: field, Reason: "is required"}
	}
	return nil
}

// translate turns a provider answer into *Error. The SDK extracts the common
// envelope; the others are decoded from the raw message it keeps.
func translate(err error) error {
	var sre *sdkerr.ServiceResponseError
	if !errors.As(err, &sre) {
		return err
	}
	msg := strings.TrimSpace(sre.ErrorMessage)
	if sre.ErrorCode == "" || strings.HasPrefix(msg, "{") {
		return parseError(sre.StatusCode, sre.RequestId, []byte(msg))
	}
	return &Error{Status: sre.StatusCode, ErrorCode: sre.ErrorCode, Message: msg, RequestID: sre.RequestId}
}

// errorBody covers the error envelopes used by the different services.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	NeutronError *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"NeutronError"`
}

// parseError decodes a failed response body. Unknown bodies keep the raw text.
func parseError(status int, requestID string, body []byte) *Error {
	e := &Error{Status: status, RequestID: requestID}
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 512 {
			e.Message = e.Message[:512]
		}
		return e
	}
	switch {
	case b.ErrorCode != "" || b.ErrorMsg != "":
		e.ErrorCode, e.Message = b.ErrorCode, b.ErrorMsg
	case b.Error != nil:
		e.ErrorCode, e.Message = b.Error.Code, b.Error.Message
	case b.NeutronError != nil:
		e.ErrorCode, e.Message = b.NeutronError.Type, b.NeutronError.Message
	default:
		e.ErrorCode, e.Message = b.Code, b.Message
	}
	return e
}
