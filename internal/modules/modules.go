// Package modules declares the console's resource menus as flow tables:
// one table per cloud service, all driven by the generic flow engine.
package modules

import (
	"context"
	"strings"
	"time"

	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/format"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/core/telegram/ui"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

// Clients hands out authenticated API clients for the session's credentials.
type Clients interface {
	Client(ctx context.Context, s *state.Session, svc cloud.Service) (*cloud.Client, error)
}

// Deps are shared by every module.
type Deps struct {
	Clients Clients
	Now     func() time.Time
}

func (d Deps) client(req *router.Request, svc cloud.Service) (*cloud.Client, error) {
	return d.Clients.Client(req.Ctx, req.Session, svc)
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// All returns the resource modules in main menu order.
func All(d Deps) []*flow.Module {
	return []*flow.Module{
		VPC(d),
		Subnet(d),
		NAT(d),
		ECS(d),
		EPS(d),
		IMS(d),
		CES(d),
	}
}

// Field keys shared by the tables.
const (
	fName        = "name"
	fDescription = "description"
	fCIDR        = "cidr"
	fVpcID       = "vpc_id"
	fSubnetID    = "subnet_id"
	fProjectID   = "enterprise_project_id"
)

// none is typed by users to leave an optional value empty.
const none = "-"

// hint is a validation message shown above the repeated prompt.
type hint string

func (h hint) Error() string { return string(h) }

const errEmpty = hint("The value must not be empty.")

func notBlank(v string) error {
	if strings.TrimSpace(v) == "" {
		return errEmpty
	}
	return nil
}

func validCIDR(v string) error {
	if _, err := cloud.ParseCIDR(v); err != nil {
		return hint("Expected an IPv4 CIDR such as 192.168.0.0/16.")
	}
	return nil
}

func validID(v string) error {
	if strings.ContainsAny(v, "/?# ") {
		return hint("That does not look like an id.")
	}
	return nil
}

func validSpec(v string) error {
	if cloud.ValidateNATSpec(v) != nil {
		return hint("Spec must be 1 (small), 2 (medium), 3 (large) or 4 (extra-large).")
	}
	return nil
}

func nameStep(what string) flow.Step {
	return flow.Step{Name: "name", Field: fName, Prompt: "Enter the " + what + " name:", Validate: notBlank}
}

func descriptionStep() flow.Step {
	return flow.Step{Name: "description", Field: fDescription, Prompt: "Enter a description (" + none + " for none):"}
}

func cidrStep() flow.Step {
	return flow.Step{Name: "cidr", Field: fCIDR, Prompt: "Enter the CIDR block, e.g. 192.168.0.0/16:", Validate: validCIDR}
}

func idStep(field, what string) flow.Step {
	return flow.Step{Name: field, Field: field, Prompt: "Enter the " + what + " id:", Validate: validID}
}

func projectStep() flow.Step {
	return flow.Step{Name: "enterprise_project", Field: fProjectID, Prompt: "Enter the enterprise project id (0 for default, " + none + " to skip):"}
}

// optional maps the "leave empty" answer to "".
func optional(v string) string {
	if strings.TrimSpace(v) == none {
		return ""
	}
	return v
}

// show replaces the pressed menu with html and a way back to module.
func show(req *router.Request, module, html string) error {
	return req.Reply.Edit(ui.HTML(html).WithMenu(flow.BackMenu(module)))
}

func terraform(req *router.Request, module, kind string, data any) (string, error) {
	hcl, err := present.Terraform(kind, data)
	if err != nil {
		return "", err
	}
	return "", show(req, module, format.Bold("Terraform")+"\n"+present.TerraformBlock(hcl))
}

// label shortens a resource for a picker button.
func label(name, id string) string {
	if name == "" {
		return id
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return name + " (" + short + ")"
}

func choices[T any](items []T, pick func(T) flow.Choice) []flow.Choice {
	out := make([]flow.Choice, 0, len(items))
	for _, it := range items {
		out = append(out, pick(it))
	}
	return out
}
