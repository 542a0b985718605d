package cloud

import (
	"context"

	eps "github.com/huaweicloud/huaweicloud-sdk-go-v3/services/eps/v1"
	"github.com/huaweicloud/huaweicloud-sdk-go-v3/services/eps/v1/model"
)

// Enterprise project status values.
const (
	ProjectEnabled  = 1
	ProjectDisabled = 2
)

// EnterpriseProject groups resources for billing and permissions.
type EnterpriseProject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      int    `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// Enabled reports whether the project accepts new resources.
func (p EnterpriseProject) Enabled() bool { return p.Status == ProjectEnabled }

// ProjectAPI wraps the enterprise project service. Requests are domain scoped.
type ProjectAPI struct {
	c   *Client
	sdk *eps.EpsClient
}

// Projects wraps an EPS service client.
func Projects(c *Client) ProjectAPI { return ProjectAPI{c: c, sdk: eps.NewEpsClient(c.hc)} }

type projectBody struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
}

type projectEnvelope struct {
	Project EnterpriseProject `json:"enterprise_project"`
}

// Create creates an enterprise project.
func (a ProjectAPI) Create(ctx context.Context, name, description string) (EnterpriseProject, error) {
	if err := required("name", name); err != nil {
		return EnterpriseProject{}, err
	}
	req := &model.CreateEnterpriseProjectRequest{}
	if err := withBody(req, projectBody{Name: name, Description: description}); err != nil {
		return EnterpriseProject{}, err
	}
	var out projectEnvelope
	err := a.c.do(ctx, "CreateEnterpriseProject", func() (any, error) { return a.sdk.CreateEnterpriseProject(req) }, &out)
	return out.Project, err
}

// List lists enterprise projects.
func (a ProjectAPI) List(ctx context.Context, n int) ([]EnterpriseProject, error) {
	req := &model.ListEnterpriseProjectRequest{Limit: limit(n)}
	var out struct {
		Projects []EnterpriseProject `json:"enterprise_projects"`
	}
	err := a.c.do(ctx, "ListEnterpriseProject", func() (any, error) { return a.sdk.ListEnterpriseProject(req) }, &out)
	return out.Projects, err
}

// Show fetches one enterprise project.
func (a ProjectAPI) Show(ctx context.Context, id string) (EnterpriseProject, error) {
	if err := checkID("project id", id); err != nil {
		return EnterpriseProject{}, err
	}
	req := &model.ShowEnterpriseProjectRequest{EnterpriseProjectId: id}
	var out projectEnvelope
	err := a.c.do(ctx, "ShowEnterpriseProject", func() (any, error) { return a.sdk.ShowEnterpriseProject(req) }, &out)
	return out.Project, err
}

// Update renames a project or changes its description.
func (a ProjectAPI) Update(ctx context.Context, id, name, description string) (EnterpriseProject, error) {
	if err := checkID("project id", id); err != nil {
		return EnterpriseProject{}, err
	}
	req := &model.UpdateEnterpriseProjectRequest{EnterpriseProjectId: id}
	if err := withBody(req, projectBody{Name: name, Description: description}); err != nil {
		return EnterpriseProject{}, err
	}
	var out projectEnvelope
	err := a.c.do(ctx, "UpdateEnterpriseProject", func() (any, error) { return a.sdk.UpdateEnterpriseProject(req) }, &out)
	return out.Project, err
}

// Enable turns a project on.
func (a ProjectAPI) Enable(ctx context.Context, id string) error {
	if err := checkID("project id", id); err != nil {
		return err
	}
	req := &model.EnableEnterpriseProjectRequest{EnterpriseProjectId: id}
	if err := withBody(req, map[string]string{"action": "enable"}); err != nil {
		return err
	}
	return a.c.do(ctx, "EnableEnterpriseProject", func() (any, error) { return a.sdk.EnableEnterpriseProject(req) }, nil)
}

// Disable turns a project off.
func (a ProjectAPI) Disable(ctx context.Context, id string) error {
	if err := checkID("project id", id); err != nil {
		return err
	}
	req := &model.DisableEnterpriseProjectRequest{EnterpriseProjectId: id}
	if err := withBody(req, map[string]string{"action": "disable"}); err != nil {
		return err
	}
	return a.c.do(ctx, "DisableEnterpriseProject", func() (any, error) { return a.sdk.DisableEnterpriseProject(req) }, nil)
}
