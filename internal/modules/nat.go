package modules

import (
	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

const (
	fNatID    = "nat_id"
	fRouterID = "router_id"
	fSpec     = "spec"
)

func specStep() flow.Step {
	return flow.Step{
		Name:     "spec",
		Field:    fSpec,
		Prompt:   "Enter the spec: 1 small, 2 medium, 3 large, 4 extra-large:",
		Validate: validSpec,
	}
}

// NAT is the public NAT gateway menu.
func NAT(d Deps) *flow.Module {
	const mod = "nat"

	gateways := func(req *router.Request) (cloud.NATAPI, error) {
		c, err := d.client(req, cloud.NAT)
		if err != nil {
			return cloud.NATAPI{}, err
		}
		return cloud.NATGateways(c), nil
	}

	createSteps := func() []flow.Step {
		return []flow.Step{
			nameStep("NAT gateway"),
			descriptionStep(),
			{Name: "router", Field: fRouterID, Prompt: "Enter the VPC (router) id:", Validate: validID},
			specStep(),
			idStep(fSubnetID, "subnet"),
			projectStep(),
		}
	}

	create := &flow.Flow{
		Steps: createSteps(),
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := gateways(req)
			if err != nil {
				return "", err
			}
			n, err := api.Create(req.Ctx, cloud.CreateNAT{
				Name:                f.Get(fName),
				Description:         optional(f.Get(fDescription)),
				RouterID:            f.Get(fRouterID),
				InternalNetworkID:   f.Get(fSubnetID),
				Spec:                f.Get(fSpec),
				EnterpriseProjectID: optional(f.Get(fProjectID)),
			})
			if err != nil {
				return "", err
			}
			return n.ID, show(req, mod, present.Created("NAT gateway", n.Name, n.ID))
		},
	}

	createTF := &flow.Flow{
		Steps: createSteps(),
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			return terraform(req, mod, "nat", present.TerraformNAT{
				Name:                f.Get(fName),
				Description:         optional(f.Get(fDescription)),
				Spec:                f.Get(fSpec),
				RouterID:            f.Get(fRouterID),
				InternalNetworkID:   f.Get(fSubnetID),
				EnterpriseProjectID: optional(f.Get(fProjectID)),
			})
		},
	}

	showFlow := &flow.Flow{
		Steps: []flow.Step{idStep(fNatID, "NAT gateway")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := gateways(req)
			if err != nil {
				return "", err
			}
			n, err := api.Show(req.Ctx, f.Get(fNatID))
			if err != nil {
				return "", err
			}
			return n.ID, show(req, mod, present.NAT(n))
		},
	}

	update := &flow.Flow{
		Steps: []flow.Step{idStep(fNatID, "NAT gateway"), nameStep("new NAT gateway"), descriptionStep(), specStep()},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := gateways(req)
			if err != nil {
				return "", err
			}
			n, err := api.Update(req.Ctx, f.Get(fNatID), cloud.UpdateNAT{
				Name:        f.Get(fName),
				Description: optional(f.Get(fDescription)),
				Spec:        f.Get(fSpec),
			})
			if err != nil {
				return "", err
			}
			return f.Get(fNatID), show(req, mod, present.NAT(n))
		},
	}

	remove := &flow.Flow{
		Steps: []flow.Step{idStep(fNatID, "NAT gateway")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := gateways(req)
			if err != nil {
				return "", err
			}
			id := f.Get(fNatID)
			if err := api.Delete(req.Ctx, id); err != nil {
				return "", err
			}
			return id, show(req, mod, present.Done("NAT gateway deleted", id))
		},
	}

	list := func(req *router.Request) ([]flow.Choice, error) {
		api, err := gateways(req)
		if err != nil {
			return nil, err
		}
		nats, err := api.List(req.Ctx, 0)
		return choices(nats, func(n cloud.NATGateway) flow.Choice {
			return flow.Choice{ID: n.ID, Label: label(n.Name, n.ID)}
		}), err
	}
	picker := func(prompt string, f *flow.Flow) *flow.Picker {
		return &flow.Picker{Prompt: prompt, Empty: "No NAT gateways yet.", List: list, Field: fNatID, Flow: f}
	}

	return &flow.Module{
		Name:    mod,
		Title:   "Public NAT Gateway",
		Columns: 2,
		Actions: []flow.Action{
			{ID: "create", Title: "Create", Flow: create},
			{ID: "create_tf", Title: "Create Terraform", Flow: createTF},
			{ID: "list", Title: "List", Run: func(req *router.Request) error {
				api, err := gateways(req)
				if err != nil {
					return err
				}
				nats, err := api.List(req.Ctx, 0)
				if err != nil {
					return err
				}
				return show(req, mod, present.NATList(nats))
			}},
			{ID: "show", Title: "Show", Pick: picker("Choose a NAT gateway:", showFlow)},
			{ID: "show_id", Title: "Show by id", Flow: showFlow},
			{ID: "update", Title: "Update", Pick: picker("Choose a NAT gateway to update:", update)},
			{ID: "update_id", Title: "Update by id", Flow: update},
			{ID: "delete", Title: "Delete", Pick: picker("Choose a NAT gateway to delete:", remove)},
			{ID: "delete_id", Title: "Delete by id", Flow: remove},
		},
	}
}
