package console

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/cloudbot/core/logger"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
)

// ErrNoCredentials is returned when a session has not entered credentials yet.
var ErrNoCredentials = errors.New("console: no credentials")

// AuthError means the user has to enter credentials again.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause == nil {
		return "console: authorization required"
	}
	return "console: authorization failed: " + e.Cause.Error()
}

func (e *AuthError) Unwrap() error { return e.Cause }

// UserMessage implements the chat error convention.
func (e *AuthError) UserMessage() string {
	return "Authorization failed. Send /start to enter credentials again."
}

// Code implements the err_code convention of the logs.
func (e *AuthError) Code() string { return "AUTH" }

// ClientCache builds API clients from session credentials and memoizes them
// in the session until the credentials change.
type ClientCache struct {
	factory *cloud.Factory
	checks  singleflight.Group
}

// NewClientCache returns a cache building clients with factory.
func NewClientCache(factory *cloud.Factory) *ClientCache {
	return &ClientCache{factory: factory}
}

func cloudCredentials(c state.Credentials) cloud.Credentials {
	return cloud.Credentials{
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		ProjectID: c.ProjectID,
		DomainID:  c.AccountID,
	}
}

// Client returns the session's client for svc. Credentials that were never
// live checked are checked first.
func (c *ClientCache) Client(ctx context.Context, s *state.Session, svc cloud.Service) (*cloud.Client, error) {
	creds, ok := s.Credentials()
	if !ok {
		return nil, &AuthError{Cause: ErrNoCredentials}
	}
	if !s.Validated() {
		if err := c.Validate(ctx, s); err != nil {
			return nil, err
		}
	}
	if cached, ok := s.Client(string(svc)); ok {
		if cl, ok := cached.(*cloud.Client); ok {
			logger.Debug(ctx, logger.ComponentCloud, "client.cache",
				slog.String("status", "ok"),
				slog.String("cache", "hit"),
				slog.String("service", string(svc)),
			)
			return cl, nil
		}
	}
	cl, err := c.factory.New(svc, cloudCredentials(creds))
	if err != nil {
		return nil, err
	}
	s.StoreClient(string(svc), cl)
	logger.Debug(ctx, logger.ComponentCloud, "client.cache",
		slog.String("status", "ok"),
		slog.String("cache", "miss"),
		slog.String("service", string(svc)),
		slog.Int("clients", s.ClientCount()),
	)
	return cl, nil
}

// Validate runs the live check for the session's credentials once per
// credential epoch. Rejected credentials are cleared; transport failures
// keep them so the user can retry.
func (c *ClientCache) Validate(ctx context.Context, s *state.Session) error {
	creds, ok := s.Credentials()
	if !ok {
		return &AuthError{Cause: ErrNoCredentials}
	}
	if s.Validated() {
		return nil
	}
	epoch := s.Epoch()
	start := time.Now()

	_, err, shared := c.checks.Do(fingerprint(creds), func() (any, error) {
		cl, err := c.factory.New(cloud.VPC, cloudCredentials(creds))
		if err != nil {
			return nil, err
		}
		_, err = cloud.Network(cl).ListVPCs(ctx, 1)
		return nil, err
	})

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("creds", creds.Fingerprint()),
		slog.Bool("shared", shared),
		slog.Duration("duration", logger.Took(start)),
	}
	var inputErr *cloud.InputError
	switch {
	case err == nil:
		s.MarkValidated(epoch)
	case cloud.IsAuthError(err), errors.As(err, &inputErr):
		s.Unauthorize()
		err = &AuthError{Cause: err}
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	logger.Info(ctx, logger.ComponentCloud, "credentials.check", attrs...)
	return err
}

// fingerprint keys in-flight checks by the full credentials without keeping
// the secret in memory as plain text.
func fingerprint(c state.Credentials) string {
	h := sha256.New()
	for _, part := range []string{c.AccessKey, c.SecretKey, c.ProjectID, c.AccountID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
