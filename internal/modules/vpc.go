package modules

import (
	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

// VPC is the virtual private cloud menu.
func VPC(d Deps) *flow.Module {
	const mod = "vpc"

	network := func(req *router.Request) (cloud.NetworkAPI, error) {
		c, err := d.client(req, cloud.VPC)
		if err != nil {
			return cloud.NetworkAPI{}, err
		}
		return cloud.Network(c), nil
	}

	create := &flow.Flow{
		Steps: []flow.Step{nameStep("VPC"), descriptionStep(), cidrStep(), projectStep()},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			v, err := api.CreateVPC(req.Ctx, cloud.CreateVPC{
				Name:                f.Get(fName),
				Description:         optional(f.Get(fDescription)),
				CIDR:                f.Get(fCIDR),
				EnterpriseProjectID: optional(f.Get(fProjectID)),
			})
			if err != nil {
				return "", err
			}
			return v.ID, show(req, mod, present.Created("VPC", v.Name, v.ID))
		},
	}

	createTF := &flow.Flow{
		Steps: []flow.Step{nameStep("VPC"), descriptionStep(), cidrStep(), projectStep()},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			return terraform(req, mod, "vpc", present.TerraformVPC{
				Name:                f.Get(fName),
				CIDR:                f.Get(fCIDR),
				Description:         optional(f.Get(fDescription)),
				EnterpriseProjectID: optional(f.Get(fProjectID)),
			})
		},
	}

	showFlow := &flow.Flow{
		Steps: []flow.Step{idStep(fVpcID, "VPC")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			v, err := api.ShowVPC(req.Ctx, f.Get(fVpcID))
			if err != nil {
				return "", err
			}
			return v.ID, show(req, mod, present.VPC(v))
		},
	}

	update := &flow.Flow{
		Steps: []flow.Step{idStep(fVpcID, "VPC"), nameStep("new VPC"), descriptionStep()},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			v, err := api.UpdateVPC(req.Ctx, f.Get(fVpcID), cloud.UpdateVPC{
				Name:        f.Get(fName),
				Description: optional(f.Get(fDescription)),
			})
			if err != nil {
				return "", err
			}
			return f.Get(fVpcID), show(req, mod, present.VPC(v))
		},
	}

	remove := &flow.Flow{
		Steps: []flow.Step{idStep(fVpcID, "VPC")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			id := f.Get(fVpcID)
			if err := api.DeleteVPC(req.Ctx, id); err != nil {
				return "", err
			}
			return id, show(req, mod, present.Done("VPC deleted", id))
		},
	}

	list := func(req *router.Request) ([]flow.Choice, error) {
		api, err := network(req)
		if err != nil {
			return nil, err
		}
		vpcs, err := api.ListVPCs(req.Ctx, 0)
		return choices(vpcs, func(v cloud.VPCInfo) flow.Choice {
			return flow.Choice{ID: v.ID, Label: label(v.Name, v.ID)}
		}), err
	}
	picker := func(prompt string, f *flow.Flow) *flow.Picker {
		return &flow.Picker{Prompt: prompt, Empty: "No VPCs yet.", List: list, Field: fVpcID, Flow: f}
	}

	return &flow.Module{
		Name:    mod,
		Title:   "Virtual Private Cloud",
		Columns: 2,
		Actions: []flow.Action{
			{ID: "create", Title: "Create", Flow: create},
			{ID: "create_tf", Title: "Create Terraform", Flow: createTF},
			{ID: "list", Title: "List", Run: func(req *router.Request) error {
				api, err := network(req)
				if err != nil {
					return err
				}
				vpcs, err := api.ListVPCs(req.Ctx, 0)
				if err != nil {
					return err
				}
				return show(req, mod, present.VPCList(vpcs))
			}},
			{ID: "show", Title: "Show", Pick: picker("Choose a VPC:", showFlow)},
			{ID: "show_id", Title: "Show by id", Flow: showFlow},
			{ID: "update", Title: "Update", Pick: picker("Choose a VPC to update:", update)},
			{ID: "update_id", Title: "Update by id", Flow: update},
			{ID: "delete", Title: "Delete", Pick: picker("Choose a VPC to delete:", remove)},
			{ID: "delete_id", Title: "Delete by id", Flow: remove},
		},
	}
}
