// Package cloud wraps the Huawei Cloud SDK clients of the services the
// console manages and translates between SDK models and console views.
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	hcore "github.com/huaweicloud/huaweicloud-sdk-go-v3/core"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth/basic"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/core/auth/global"
	hconfig "github.com/huaweicloud/huaweicloud-sdk-go-v3/core/config"
	ces "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ces/v1"
	ecs "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ecs/v2"
	eps "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/eps/v1"
	ims "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ims/v2"
	nat "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/nat/v2"
	vpc "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/vpc/v2"

	"github.com/m3rciful/cloudbot/core/logger"
)

// Service names a provider endpoint.
type Service string

const (
	VPC Service = "vpc"
	NAT Service = "nat"
	ECS Service = "ecs"
	EPS Service = "eps"
	IMS Service = "ims"
	CES Service = "ces"
)

// Services lists every service the console talks to.
var Services = []Service{VPC, NAT, ECS, EPS, IMS, CES}

var builders = map[Service]func() *hcore.HcHttpClientBuilder{
	VPC: vpc.VpcClientBuilder,
	NAT: nat.NatClientBuilder,
	ECS: ecs.EcsClientBuilder,
	EPS: eps.EpsClientBuilder,
	IMS: ims.ImsClientBuilder,
	CES: ces.CesClientBuilder,
}

// Scope selects the credential kind a service is called with.
type Scope int

const (
	ScopeProject Scope = iota
	ScopeDomain
)

// Scope of the service; enterprise projects live at account level.
func (s Service) Scope() Scope {
	if s == EPS {
		return ScopeDomain
	}
	return ScopeProject
}

// Credentials sign and scope requests.
type Credentials struct {
	AccessKey string
	SecretKey string
	ProjectID string
	DomainID  string
}

func (c Credentials) check(scope Scope) error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return &InputError{Field: "access key", Reason: "is required"}
	}
	if scope == ScopeDomain && c.DomainID == "" {
		return &InputError{Field: "account id", Reason: "is required"}
	}
	if scope == ScopeProject && c.ProjectID == "" {
		return &InputError{Field: "project id", Reason: "is required"}
	}
	return nil
}

// sdk returns project credentials, or account credentials for domain scoped
// services.
func (c Credentials) sdk(scope Scope) (auth.ICredential, error) {
	if scope == ScopeDomain {
		cred, err := global.NewCredentialsBuilder().
			WithAk(c.AccessKey).
			WithSk(c.SecretKey).
			WithDomainId(c.DomainID).
			SafeBuild()
		if err != nil {
			return nil, err
		}
		return cred, nil
	}
	cred, err := basic.NewCredentialsBuilder().
		WithAk(c.AccessKey).
		WithSk(c.SecretKey).
		WithProjectId(c.ProjectID).
		SafeBuild()
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Config describes where the provider lives.
type Config struct {
	Region string
	// EndpointTemplate expands {service} and {region}.
	EndpointTemplate   string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Factory builds SDK clients that share one HTTP configuration.
type Factory struct {
	cfg  Config
	http *hconfig.HttpConfig
}

// NewFactory prepares a factory for cfg.
func NewFactory(cfg Config) *Factory {
	hc := hconfig.DefaultHttpConfig().WithIgnoreSSLVerification(cfg.InsecureSkipVerify)
	if cfg.Timeout > 0 {
		hc = hc.WithTimeout(cfg.Timeout)
	}
	return &Factory{cfg: cfg, http: hc}
}

// Endpoint returns the base URL of svc.
func (f *Factory) Endpoint(svc Service) string {
	r := strings.NewReplacer("{service}", string(svc), "{region}", f.cfg.Region)
	return strings.TrimRight(r.Replace(f.cfg.EndpointTemplate), "/")
}

// New returns a client for svc. It does not contact the provider.
func (f *Factory) New(svc Service, creds Credentials) (*Client, error) {
	builder, ok := builders[svc]
	if !ok {
		return nil, fmt.Errorf("cloud: unknown service %q", svc)
	}
	if err := creds.check(svc.Scope()); err != nil {
		return nil, err
	}
	endpoint := f.Endpoint(svc)
	if u, err := url.Parse(endpoint); err != nil || u.Host == "" {
		return nil, fmt.Errorf("cloud: bad endpoint for %s: %q", svc, endpoint)
	}
	cred, err := creds.sdk(svc.Scope())
	if err != nil {
		return nil, &InputError{Field: "credentials", Reason: "are incomplete: " + err.Error()}
	}
	hc, err := builder().
		WithEndpoints([]string{endpoint}).
		WithCredential(cred).
		WithHttpConfig(f.http).
		SafeBuild()
	if err != nil {
		return nil, fmt.Errorf("cloud: build %s client: %w", svc, err)
	}
	return &Client{service: svc, hc: hc, projectID: creds.ProjectID}, nil
}

// Client is an immutable SDK client for one service.
type Client struct {
	service   Service
	hc        *hcore.HcHttpClient
	projectID string
}

// Service returns the service the client talks to.
func (c *Client) Service() Service { return c.service }

// ProjectID returns the project requests are scoped to.
func (c *Client) ProjectID() string { return c.projectID }

// do runs one SDK operation and decodes its response into out. Failed
// calls come back as *Error when the provider answered.
func (c *Client) do(ctx context.Context, op string, send func() (any, error), out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = logger.StartSpan(ctx)
	start := time.Now()
	resp, err := send()
	if err != nil {
		err = translate(err)
		c.log(ctx, op, start, err)
		if _, ok := err.(*Error); ok {
			return err
		}
		return fmt.Errorf("cloud: %s %s: %w", c.service, op, err)
	}
	c.log(ctx, op, start, nil)
	if out == nil {
		return nil
	}
	if err := remarshal(resp, out); err != nil {
		return fmt.Errorf("cloud: decode %s %s: %w", c.service, op, err)
	}
	return nil
}

func (c *Client) log(ctx context.Context, op string, start time.Time, err error) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("service", string(c.service)),
		slog.String("op", op),
		slog.Duration("duration", logger.Took(start)),
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		attrs = append(attrs, slog.Int("http_status", apiErr.Status))
		if apiErr.RequestID != "" {
			attrs = append(attrs, slog.String("request_id", apiErr.RequestID))
		}
	}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		if coded, ok := err.(interface{ Code() string }); ok {
			attrs = append(attrs, slog.String("err_code", coded.Code()))
		}
	}
	logger.Event(ctx, logger.ComponentCloud, level, "cloud.request", attrs...)
}

// remarshal copies between console views and SDK models through their
// shared wire format.
func remarshal(from, to any) error {
	raw, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, to)
}

// withBody fills the Body of an SDK request from body, which has the wire
// layout of the request body.
func withBody(req, body any) error {
	if err := remarshal(struct {
		Body any `json:"body"`
	}{body}, req); err != nil {
		return &InputError{Field: "request", Reason: "is not valid: " + err.Error()}
	}
	return nil
}

// checkID rejects ids that would change the request path.
func checkID(field, id string) error {
	if err := required(field, id); err != nil {
		return err
	}
	if strings.ContainsAny(id, "/?#") || id == "." || id == ".." {
		return &InputError{Field: field, Reason: "is not a valid id"}
	}
	return nil
}

// limit converts a page size; 0 leaves the provider default.
func limit(n int) *int32 {
	if n <= 0 {
		return nil
	}
	v := int32(n)
	return &v
}
