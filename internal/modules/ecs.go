package modules

import (
	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

const (
	fServerID = "server_id"
	fFlavor   = "flavor"
	fImageID  = "image_id"
)

func flavorStep() flow.Step {
	return flow.Step{Name: "flavor", Field: fFlavor, Prompt: "Enter the flavor, e.g. s6.small.1:", Validate: notBlank}
}

// ECS is the elastic cloud server menu.
func ECS(d Deps) *flow.Module {
	const mod = "ecs"

	servers := func(req *router.Request) (cloud.ServerAPI, error) {
		c, err := d.client(req, cloud.ECS)
		if err != nil {
			return cloud.ServerAPI{}, err
		}
		return cloud.Servers(c), nil
	}

	create := &flow.Flow{
		Steps: []flow.Step{
			nameStep("server"),
			flavorStep(),
			idStep(fImageID, "image"),
			idStep(fVpcID, "VPC"),
			idStep(fSubnetID, "subnet"),
		},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := servers(req)
			if err != nil {
				return "", err
			}
			job, err := api.Create(req.Ctx, cloud.CreateServer{
				Name:     f.Get(fName),
				FlavorID: f.Get(fFlavor),
				ImageID:  f.Get(fImageID),
				VpcID:    f.Get(fVpcID),
				SubnetID: f.Get(fSubnetID),
			})
			if err != nil {
				return "", err
			}
			id := job.JobID
			if len(job.ServerIDs) > 0 {
				id = job.ServerIDs[0]
			}
			return id, show(req, mod, present.Job("Server "+f.Get(fName), job.JobID))
		},
	}

	createTF := &flow.Flow{
		Steps: []flow.Step{nameStep("server"), flavorStep(), idStep(fImageID, "image"), idStep(fSubnetID, "subnet")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			return terraform(req, mod, "ecs", present.TerraformECS{
				Name:     f.Get(fName),
				FlavorID: f.Get(fFlavor),
				ImageID:  f.Get(fImageID),
				SubnetID: f.Get(fSubnetID),
			})
		},
	}

	showFlow := &flow.Flow{
		Steps: []flow.Step{idStep(fServerID, "server")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := servers(req)
			if err != nil {
				return "", err
			}
			s, err := api.Show(req.Ctx, f.Get(fServerID))
			if err != nil {
				return "", err
			}
			return s.ID, show(req, mod, present.Server(s))
		},
	}

	flavor := &flow.Flow{
		Steps: []flow.Step{flavorStep()},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := servers(req)
			if err != nil {
				return "", err
			}
			fl, err := api.Flavor(req.Ctx, f.Get(fFlavor))
			if err != nil {
				return "", err
			}
			return fl.ID, show(req, mod, present.Flavor(fl))
		},
	}

	remove := &flow.Flow{
		Steps: []flow.Step{idStep(fServerID, "server")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := servers(req)
			if err != nil {
				return "", err
			}
			id := f.Get(fServerID)
			job, err := api.Delete(req.Ctx, id)
			if err != nil {
				return "", err
			}
			return id, show(req, mod, present.Job("Server deletion", job.JobID))
		},
	}

	list := func(req *router.Request) ([]flow.Choice, error) {
		api, err := servers(req)
		if err != nil {
			return nil, err
		}
		ss, err := api.List(req.Ctx, 0)
		return choices(ss, func(s cloud.Server) flow.Choice {
			return flow.Choice{ID: s.ID, Label: label(s.Name, s.ID)}
		}), err
	}
	picker := func(prompt string, f *flow.Flow) *flow.Picker {
		return &flow.Picker{Prompt: prompt, Empty: "No servers yet.", List: list, Field: fServerID, Flow: f}
	}

	return &flow.Module{
		Name:    mod,
		Title:   "Elastic Cloud Server",
		Columns: 2,
		Actions: []flow.Action{
			{ID: "create", Title: "Create", Flow: create},
			{ID: "create_tf", Title: "Create Terraform", Flow: createTF},
			{ID: "list", Title: "List", Run: func(req *router.Request) error {
				api, err := servers(req)
				if err != nil {
					return err
				}
				ss, err := api.List(req.Ctx, 0)
				if err != nil {
					return err
				}
				return show(req, mod, present.ServerList(ss))
			}},
			{ID: "show", Title: "Show", Pick: picker("Choose a server:", showFlow)},
			{ID: "show_id", Title: "Show by id", Flow: showFlow},
			{ID: "flavors", Title: "List flavors", Run: func(req *router.Request) error {
				api, err := servers(req)
				if err != nil {
					return err
				}
				fs, err := api.Flavors(req.Ctx)
				if err != nil {
					return err
				}
				return show(req, mod, present.FlavorList(fs))
			}},
			{ID: "flavor", Title: "Show flavor", Flow: flavor},
			{ID: "delete", Title: "Delete", Pick: picker("Choose a server to delete:", remove)},
		},
	}
}
