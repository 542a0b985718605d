package cloud

import (
	"context"
	"fmt"
	"net/netip"

	vpc "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/vpc/v2"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/vpc/v2/model"
)

// VPCInfo is a virtual private cloud.
type VPCInfo struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	CIDR                string `json:"cidr"`
	Status              string `json:"status"`
	EnterpriseProjectID string `json:"enterprise_project_id"`
}

// CreateVPC holds the create parameters.
type CreateVPC struct {
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	CIDR                string `json:"cidr"`
	EnterpriseProjectID string `json:"enterprise_project_id,omitempty"`
}

// UpdateVPC holds the mutable attributes.
type UpdateVPC struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
}

// Subnet belongs to a VPC.
type Subnet struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	CIDR             string `json:"cidr"`
	GatewayIP        string `json:"gateway_ip"`
	VpcID            string `json:"vpc_id"`
	Status           string `json:"status"`
	AvailabilityZone string `json:"availability_zone"`
}

// CreateSubnet holds the create parameters. An empty GatewayIP is derived
// from the CIDR.
type CreateSubnet struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CIDR        string `json:"cidr"`
	GatewayIP   string `json:"gateway_ip"`
	VpcID       string `json:"vpc_id"`
}

// UpdateSubnet holds the mutable attributes.
type UpdateSubnet struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
}

// NetworkAPI wraps the VPC service: VPCs and their subnets.
type NetworkAPI struct {
	c   *Client
	sdk *vpc.VpcClient
}

// Network wraps a VPC service client.
func Network(c *Client) NetworkAPI { return NetworkAPI{c: c, sdk: vpc.NewVpcClient(c.hc)} }

type vpcEnvelope struct {
	VPC VPCInfo `json:"vpc"`
}

type subnetEnvelope struct {
	Subnet Subnet `json:"subnet"`
}

// CreateVPC creates a VPC.
func (a NetworkAPI) CreateVPC(ctx context.Context, in CreateVPC) (VPCInfo, error) {
	if err := required("name", in.Name); err != nil {
		return VPCInfo{}, err
	}
	if _, err := ParseCIDR(in.CIDR); err != nil {
		return VPCInfo{}, err
	}
	req := &model.CreateVpcRequest{}
	if err := withBody(req, map[string]any{"vpc": in}); err != nil {
		return VPCInfo{}, err
	}
	var out vpcEnvelope
	err := a.c.do(ctx, "CreateVpc", func() (any, error) { return a.sdk.CreateVpc(req) }, &out)
	return out.VPC, err
}

// ListVPCs lists VPCs; limit 0 uses the provider default.
func (a NetworkAPI) ListVPCs(ctx context.Context, n int) ([]VPCInfo, error) {
	req := &model.ListVpcsRequest{Limit: limit(n)}
	var out struct {
		VPCs []VPCInfo `json:"vpcs"`
	}
	err := a.c.do(ctx, "ListVpcs", func() (any, error) { return a.sdk.ListVpcs(req) }, &out)
	return out.VPCs, err
}

// ShowVPC fetches one VPC.
func (a NetworkAPI) ShowVPC(ctx context.Context, id string) (VPCInfo, error) {
	if err := checkID("vpc id", id); err != nil {
		return VPCInfo{}, err
	}
	req := &model.ShowVpcRequest{VpcId: id}
	var out vpcEnvelope
	err := a.c.do(ctx, "ShowVpc", func() (any, error) { return a.sdk.ShowVpc(req) }, &out)
	return out.VPC, err
}

// UpdateVPC renames a VPC or changes its description.
func (a NetworkAPI) UpdateVPC(ctx context.Context, id string, in UpdateVPC) (VPCInfo, error) {
	if err := checkID("vpc id", id); err != nil {
		return VPCInfo{}, err
	}
	req := &model.UpdateVpcRequest{VpcId: id}
	if err := withBody(req, map[string]any{"vpc": in}); err != nil {
		return VPCInfo{}, err
	}
	var out vpcEnvelope
	err := a.c.do(ctx, "UpdateVpc", func() (any, error) { return a.sdk.UpdateVpc(req) }, &out)
	return out.VPC, err
}

// DeleteVPC deletes a VPC.
func (a NetworkAPI) DeleteVPC(ctx context.Context, id string) error {
	if err := checkID("vpc id", id); err != nil {
		return err
	}
	req := &model.DeleteVpcRequest{VpcId: id}
	return a.c.do(ctx, "DeleteVpc", func() (any, error) { return a.sdk.DeleteVpc(req) }, nil)
}

// CreateSubnet creates a subnet in in.VpcID.
func (a NetworkAPI) CreateSubnet(ctx context.Context, in CreateSubnet) (Subnet, error) {
	if err := required("name", in.Name); err != nil {
		return Subnet{}, err
	}
	if err := checkID("vpc id", in.VpcID); err != nil {
		return Subnet{}, err
	}
	if in.GatewayIP == "" {
		gw, err := GatewayIP(in.CIDR)
		if err != nil {
			return Subnet{}, err
		}
		in.GatewayIP = gw
	}
	req := &model.CreateSubnetRequest{}
	if err := withBody(req, map[string]any{"subnet": in}); err != nil {
		return Subnet{}, err
	}
	var out subnetEnvelope
	err := a.c.do(ctx, "CreateSubnet", func() (any, error) { return a.sdk.CreateSubnet(req) }, &out)
	return out.Subnet, err
}

// ListSubnets lists subnets, optionally of one VPC.
func (a NetworkAPI) ListSubnets(ctx context.Context, vpcID string, n int) ([]Subnet, error) {
	req := &model.ListSubnetsRequest{Limit: limit(n)}
	if vpcID != "" {
		req.VpcId = &vpcID
	}
	var out struct {
		Subnets []Subnet `json:"subnets"`
	}
	err := a.c.do(ctx, "ListSubnets", func() (any, error) { return a.sdk.ListSubnets(req) }, &out)
	return out.Subnets, err
}

// ShowSubnet fetches one subnet.
func (a NetworkAPI) ShowSubnet(ctx context.Context, id string) (Subnet, error) {
	if err := checkID("subnet id", id); err != nil {
		return Subnet{}, err
	}
	req := &model.ShowSubnetRequest{SubnetId: id}
	var out subnetEnvelope
	err := a.c.do(ctx, "ShowSubnet", func() (any, error) { return a.sdk.ShowSubnet(req) }, &out)
	return out.Subnet, err
}

// UpdateSubnet changes the name or description of a subnet of vpcID.
func (a NetworkAPI) UpdateSubnet(ctx context.Context, vpcID, id string, in UpdateSubnet) (Subnet, error) {
	if err := checkID("vpc id", vpcID); err != nil {
		return Subnet{}, err
	}
	if err := checkID("subnet id", id); err != nil {
		return Subnet{}, err
	}
	req := &model.UpdateSubnetRequest{VpcId: vpcID, SubnetId: id}
	if err := withBody(req, map[string]any{"subnet": in}); err != nil {
		return Subnet{}, err
	}
	var out subnetEnvelope
	err := a.c.do(ctx, "UpdateSubnet", func() (any, error) { return a.sdk.UpdateSubnet(req) }, &out)
	if err == nil && out.Subnet.ID == "" {
		out.Subnet.ID = id
	}
	return out.Subnet, err
}

// DeleteSubnet deletes a subnet of vpcID.
func (a NetworkAPI) DeleteSubnet(ctx context.Context, vpcID, id string) error {
	if err := checkID("vpc id", vpcID); err != nil {
		return err
	}
	if err := checkID("subnet id", id); err != nil {
		return err
	}
	req := &model.DeleteSubnetRequest{VpcId: vpcID, SubnetId: id}
	return a.c.do(ctx, "DeleteSubnet", func() (any, error) { return a.sdk.DeleteSubnet(req) }, nil)
}

// ParseCIDR accepts an IPv4 prefix such as 192.168.0.0/16.
func ParseCIDR(cidr string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(cidr)
	if err != nil || !p.Addr().Is4() {
		return netip.Prefix{}, &InputError{Field: "cidr", Reason: fmt.Sprintf("%q is not an IPv4 CIDR like 192.168.0.0/24", cidr)}
	}
	return p, nil
}

// GatewayIP returns the first host address of cidr.
func GatewayIP(cidr string) (string, error) {
	p, err := ParseCIDR(cidr)
	if err != nil {
		return "", err
	}
	if p.Bits() > 30 {
		return "", &InputError{Field: "cidr", Reason: "leaves no room for a gateway"}
	}
	return p.Masked().Addr().Next().String(), nil
}
