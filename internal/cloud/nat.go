package cloud

import (
	"context"
	"strconv"

	nat "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/nat/v2"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/nat/v2/model"
)

// NATGateway is a public NAT gateway.
type NATGateway struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	Spec                string `json:"spec"`
	Status              string `json:"status"`
	RouterID            string `json:"router_id"`
	InternalNetworkID   string `json:"internal_network_id"`
	EnterpriseProjectID string `json:"enterprise_project_id"`
	CreatedAt           string `json:"created_at"`
}

// CreateNAT holds the create parameters.
type CreateNAT struct {
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	RouterID            string `json:"router_id"`
	InternalNetworkID   string `json:"internal_network_id"`
	Spec                string `json:"spec"`
	EnterpriseProjectID string `json:"enterprise_project_id,omitempty"`
}

// UpdateNAT holds the mutable attributes.
type UpdateNAT struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	Spec        string `json:"spec,omitempty"`
}

// NATAPI wraps the NAT gateway service.
type NATAPI struct {
	c   *Client
	sdk *nat.NatClient
}

// NATGateways wraps a NAT service client.
func NATGateways(c *Client) NATAPI { return NATAPI{c: c, sdk: nat.NewNatClient(c.hc)} }

type natEnvelope struct {
	NAT NATGateway `json:"nat_gateway"`
}

// ValidateNATSpec accepts the gateway sizes 1 (small) to 4 (extra-large).
func ValidateNATSpec(spec string) error {
	n, err := strconv.Atoi(spec)
	if err != nil || n < 1 || n > 4 {
		return &InputError{Field: "spec", Reason: "must be 1, 2, 3 or 4"}
	}
	return nil
}

// Create creates a NAT gateway.
func (a NATAPI) Create(ctx context.Context, in CreateNAT) (NATGateway, error) {
	if err := required("name", in.Name); err != nil {
		return NATGateway{}, err
	}
	if err := ValidateNATSpec(in.Spec); err != nil {
		return NATGateway{}, err
	}
	req := &model.CreateNatGatewayRequest{}
	if err := withBody(req, map[string]any{"nat_gateway": in}); err != nil {
		return NATGateway{}, err
	}
	var out natEnvelope
	err := a.c.do(ctx, "CreateNatGateway", func() (any, error) { return a.sdk.CreateNatGateway(req) }, &out)
	return out.NAT, err
}

// List lists NAT gateways.
func (a NATAPI) List(ctx context.Context, n int) ([]NATGateway, error) {
	req := &model.ListNatGatewaysRequest{Limit: limit(n)}
	var out struct {
		NATs []NATGateway `json:"nat_gateways"`
	}
	err := a.c.do(ctx, "ListNatGateways", func() (any, error) { return a.sdk.ListNatGateways(req) }, &out)
	return out.NATs, err
}

// Show fetches one NAT gateway.
func (a NATAPI) Show(ctx context.Context, id string) (NATGateway, error) {
	if err := checkID("nat id", id); err != nil {
		return NATGateway{}, err
	}
	req := &model.ShowNatGatewayRequest{NatGatewayId: id}
	var out natEnvelope
	err := a.c.do(ctx, "ShowNatGateway", func() (any, error) { return a.sdk.ShowNatGateway(req) }, &out)
	return out.NAT, err
}

// Update changes name, description or spec.
func (a NATAPI) Update(ctx context.Context, id string, in UpdateNAT) (NATGateway, error) {
	if err := checkID("nat id", id); err != nil {
		return NATGateway{}, err
	}
	if in.Spec != "" {
		if err := ValidateNATSpec(in.Spec); err != nil {
			return NATGateway{}, err
		}
	}
	req := &model.UpdateNatGatewayRequest{NatGatewayId: id}
	if err := withBody(req, map[string]any{"nat_gateway": in}); err != nil {
		return NATGateway{}, err
	}
	var out natEnvelope
	err := a.c.do(ctx, "UpdateNatGateway", func() (any, error) { return a.sdk.UpdateNatGateway(req) }, &out)
	return out.NAT, err
}

// Delete deletes a NAT gateway.
func (a NATAPI) Delete(ctx context.Context, id string) error {
	if err := checkID("nat id", id); err != nil {
		return err
	}
	req := &model.DeleteNatGatewayRequest{NatGatewayId: id}
	return a.c.do(ctx, "DeleteNatGateway", func() (any, error) { return a.sdk.DeleteNatGateway(req) }, nil)
}
