package modules

import (
	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

// Subnet is the subnet menu. Subnets are served by the VPC endpoint.
func Subnet(d Deps) *flow.Module {
	const mod = "subnet"

	network := func(req *router.Request) (cloud.NetworkAPI, error) {
		c, err := d.client(req, cloud.VPC)
		if err != nil {
			return cloud.NetworkAPI{}, err
		}
		return cloud.Network(c), nil
	}

	create := &flow.Flow{
		Steps: []flow.Step{nameStep("subnet"), descriptionStep(), cidrStep(), idStep(fVpcID, "VPC")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			sn, err := api.CreateSubnet(req.Ctx, cloud.CreateSubnet{
				Name:        f.Get(fName),
				Description: optional(f.Get(fDescription)),
				CIDR:        f.Get(fCIDR),
				VpcID:       f.Get(fVpcID),
			})
			if err != nil {
				return "", err
			}
			return sn.ID, show(req, mod, present.Created("Subnet", sn.Name, sn.ID))
		},
	}

	createTF := &flow.Flow{
		Steps: []flow.Step{nameStep("subnet"), descriptionStep(), cidrStep(), idStep(fVpcID, "VPC")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			gw, err := cloud.GatewayIP(f.Get(fCIDR))
			if err != nil {
				return "", err
			}
			return terraform(req, mod, "subnet", present.TerraformSubnet{
				Name:        f.Get(fName),
				CIDR:        f.Get(fCIDR),
				GatewayIP:   gw,
				VpcID:       f.Get(fVpcID),
				Description: optional(f.Get(fDescription)),
			})
		},
	}

	showFlow := &flow.Flow{
		Steps: []flow.Step{idStep(fSubnetID, "subnet")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			sn, err := api.ShowSubnet(req.Ctx, f.Get(fSubnetID))
			if err != nil {
				return "", err
			}
			return sn.ID, show(req, mod, present.Subnet(sn))
		},
	}

	update := &flow.Flow{
		Steps: []flow.Step{
			idStep(fSubnetID, "subnet"),
			idStep(fVpcID, "VPC"),
			nameStep("new subnet"),
			descriptionStep(),
		},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			id := f.Get(fSubnetID)
			sn, err := api.UpdateSubnet(req.Ctx, f.Get(fVpcID), id, cloud.UpdateSubnet{
				Name:        f.Get(fName),
				Description: optional(f.Get(fDescription)),
			})
			if err != nil {
				return "", err
			}
			return id, show(req, mod, present.Done("Subnet updated: "+sn.Name, id))
		},
	}

	remove := &flow.Flow{
		Steps: []flow.Step{idStep(fSubnetID, "subnet"), idStep(fVpcID, "VPC")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := network(req)
			if err != nil {
				return "", err
			}
			id := f.Get(fSubnetID)
			if err := api.DeleteSubnet(req.Ctx, f.Get(fVpcID), id); err != nil {
				return "", err
			}
			return id, show(req, mod, present.Done("Subnet deleted", id))
		},
	}

	list := func(req *router.Request) ([]flow.Choice, error) {
		api, err := network(req)
		if err != nil {
			return nil, err
		}
		subnets, err := api.ListSubnets(req.Ctx, "", 0)
		return choices(subnets, func(sn cloud.Subnet) flow.Choice {
			return flow.Choice{ID: sn.ID, Label: label(sn.Name, sn.ID)}
		}), err
	}
	// update and delete address the subnet through its VPC
	resolveVPC := func(req *router.Request, id string) (state.Fields, error) {
		api, err := network(req)
		if err != nil {
			return nil, err
		}
		sn, err := api.ShowSubnet(req.Ctx, id)
		if err != nil {
			return nil, err
		}
		return state.Fields{fVpcID: sn.VpcID}, nil
	}
	picker := func(prompt string, f *flow.Flow, resolve bool) *flow.Picker {
		p := &flow.Picker{Prompt: prompt, Empty: "No subnets yet.", List: list, Field: fSubnetID, Flow: f}
		if resolve {
			p.Resolve = resolveVPC
		}
		return p
	}

	return &flow.Module{
		Name:    mod,
		Title:   "Subnet",
		Columns: 2,
		Actions: []flow.Action{
			{ID: "create", Title: "Create", Flow: create},
			{ID: "create_tf", Title: "Create Terraform", Flow: createTF},
			{ID: "list", Title: "List", Run: func(req *router.Request) error {
				api, err := network(req)
				if err != nil {
					return err
				}
				subnets, err := api.ListSubnets(req.Ctx, "", 0)
				if err != nil {
					return err
				}
				return show(req, mod, present.SubnetList(subnets))
			}},
			{ID: "show", Title: "Show", Pick: picker("Choose a subnet:", showFlow, false)},
			{ID: "show_id", Title: "Show by id", Flow: showFlow},
			{ID: "update", Title: "Update", Pick: picker("Choose a subnet to update:", update, true)},
			{ID: "update_id", Title: "Update by id", Flow: update},
			{ID: "delete", Title: "Delete", Pick: picker("Choose a subnet to delete:", remove, true)},
			{ID: "delete_id", Title: "Delete by id", Flow: remove},
		},
	}
}
