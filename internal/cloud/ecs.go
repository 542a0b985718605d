package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	ecs "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ecs/v2"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/ecs/v2/model"
)

// Flex decodes a value the API sends either as a string or as a number.
type Flex string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(s)
		return nil
	}
	*f = Flex(b)
	return nil
}

// Flavor is a server size.
type Flavor struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	VCPUs Flex        `json:"vcpus"`
	RAM   Flex        `json:"ram"`
	Disk  Flex        `json:"disk"`
	Extra FlavorExtra `json:"os_extra_specs"`
}

// FlavorExtra holds the extra specs the console shows.
type FlavorExtra struct {
	Performance string `json:"ecs:performancetype"`
	Generation  string `json:"ecs:generation"`
}

// ServerAddress is one NIC address.
type ServerAddress struct {
	Addr    string `json:"addr"`
	Version Flex   `json:"version"`
	Type    string `json:"OS-EXT-IPS:type"`
}

// Server is an elastic cloud server.
type Server struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Status    string                     `json:"status"`
	Created   string                     `json:"created"`
	Flavor    Flavor                     `json:"flavor"`
	Image     struct{ ID string }        `json:"image"`
	Addresses map[string][]ServerAddress `json:"addresses"`
	Zone      string                     `json:"OS-EXT-AZ:availability_zone"`
}

// IPs returns every address of the server, sorted by network.
func (s Server) IPs() []string {
	var out []string
	for _, network := range slices.Sorted(maps.Keys(s.Addresses)) {
		for _, a := range s.Addresses[network] {
			out = append(out, a.Addr)
		}
	}
	return out
}

// CreateServer holds the create parameters. The root volume is an SSD.
type CreateServer struct {
	Name     string
	FlavorID string
	ImageID  string
	VpcID    string
	SubnetID string
}

// ServerJob is the asynchronous result of a server create or delete.
type ServerJob struct {
	JobID     string   `json:"job_id"`
	OrderID   string   `json:"order_id"`
	ServerIDs []string `json:"serverIds"`
}

// ServerAPI wraps the ECS service.
type ServerAPI struct {
	c   *Client
	sdk *ecs.EcsClient
}

// Servers wraps an ECS service client.
func Servers(c *Client) ServerAPI { return ServerAPI{c: c, sdk: ecs.NewEcsClient(c.hc)} }

// Create orders one pay-per-use server.
func (a ServerAPI) Create(ctx context.Context, in CreateServer) (ServerJob, error) {
	for _, f := range []struct{ name, value string }{
		{"name", in.Name}, {"flavor", in.FlavorID}, {"image id", in.ImageID},
		{"vpc id", in.VpcID}, {"subnet id", in.SubnetID},
	} {
		if err := required(f.name, f.value); err != nil {
			return ServerJob{}, err
		}
	}
	req := &model.CreateServersRequest{}
	err := withBody(req, map[string]any{
		"server": map[string]any{
			"name":        in.Name,
			"flavorRef":   in.FlavorID,
			"imageRef":    in.ImageID,
			"vpcid":       in.VpcID,
			"nics":        []map[string]string{{"subnet_id": in.SubnetID}},
			"root_volume": map[string]string{"volumetype": "SSD"},
			"count":       1,
		},
	})
	if err != nil {
		return ServerJob{}, err
	}
	var out ServerJob
	err = a.c.do(ctx, "CreateServers", func() (any, error) { return a.sdk.CreateServers(req) }, &out)
	return out, err
}

// List lists servers with details.
func (a ServerAPI) List(ctx context.Context, n int) ([]Server, error) {
	req := &model.ListServersDetailsRequest{Limit: limit(n)}
	var out struct {
		Servers []Server `json:"servers"`
	}
	err := a.c.do(ctx, "ListServersDetails", func() (any, error) { return a.sdk.ListServersDetails(req) }, &out)
	return out.Servers, err
}

// Show fetches one server.
func (a ServerAPI) Show(ctx context.Context, id string) (Server, error) {
	if err := checkID("server id", id); err != nil {
		return Server{}, err
	}
	req := &model.ShowServerRequest{ServerId: id}
	var out struct {
		Server Server `json:"server"`
	}
	err := a.c.do(ctx, "ShowServer", func() (any, error) { return a.sdk.ShowServer(req) }, &out)
	return out.Server, err
}

// Flavors lists available flavors.
func (a ServerAPI) Flavors(ctx context.Context) ([]Flavor, error) {
	req := &model.ListFlavorsRequest{}
	var out struct {
		Flavors []Flavor `json:"flavors"`
	}
	err := a.c.do(ctx, "ListFlavors", func() (any, error) { return a.sdk.ListFlavors(req) }, &out)
	return out.Flavors, err
}

// Flavor finds a flavor by name or id, case-insensitively.
func (a ServerAPI) Flavor(ctx context.Context, name string) (Flavor, error) {
	if err := required("flavor", name); err != nil {
		return Flavor{}, err
	}
	flavors, err := a.Flavors(ctx)
	if err != nil {
		return Flavor{}, err
	}
	for _, f := range flavors {
		if strings.EqualFold(f.Name, name) || f.ID == name {
			return f, nil
		}
	}
	return Flavor{}, &InputError{Field: "flavor", Reason: "not found: " + name}
}

// Delete deletes a server together with its data volumes.
func (a ServerAPI) Delete(ctx context.Context, id string) (ServerJob, error) {
	if err := checkID("server id", id); err != nil {
		return ServerJob{}, err
	}
	req := &model.DeleteServersRequest{}
	err := withBody(req, map[string]any{
		"servers":         []map[string]string{{"id": id}},
		"delete_publicip": false,
		"delete_volume":   true,
	})
	if err != nil {
		return ServerJob{}, err
	}
	var out ServerJob
	err = a.c.do(ctx, "DeleteServers", func() (any, error) { return a.sdk.DeleteServers(req) }, &out)
	return out, err
}
