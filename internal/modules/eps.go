package modules

import (
	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

const fEpsID = "eps_id"

// EPS is the enterprise project menu. Projects are account-wide, so the
// client is scoped with the account id.
func EPS(d Deps) *flow.Module {
	const mod = "eps"

	projects := func(req *router.Request) (cloud.ProjectAPI, error) {
		c, err := d.client(req, cloud.EPS)
		if err != nil {
			return cloud.ProjectAPI{}, err
		}
		return cloud.Projects(c), nil
	}

	create := &flow.Flow{
		Steps: []flow.Step{nameStep("enterprise project"), descriptionStep()},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := projects(req)
			if err != nil {
				return "", err
			}
			p, err := api.Create(req.Ctx, f.Get(fName), optional(f.Get(fDescription)))
			if err != nil {
				return "", err
			}
			return p.ID, show(req, mod, present.Created("Enterprise project", p.Name, p.ID))
		},
	}

	update := &flow.Flow{
		Steps: []flow.Step{idStep(fEpsID, "enterprise project"), nameStep("new enterprise project"), descriptionStep()},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := projects(req)
			if err != nil {
				return "", err
			}
			p, err := api.Update(req.Ctx, f.Get(fEpsID), f.Get(fName), optional(f.Get(fDescription)))
			if err != nil {
				return "", err
			}
			return f.Get(fEpsID), show(req, mod, present.Project(p))
		},
	}

	toggle := func(enable bool) *flow.Flow {
		return &flow.Flow{
			Steps: []flow.Step{idStep(fEpsID, "enterprise project")},
			Finish: func(req *router.Request, f state.Fields) (string, error) {
				api, err := projects(req)
				if err != nil {
					return "", err
				}
				id := f.Get(fEpsID)
				what := "Enterprise project enabled"
				if enable {
					err = api.Enable(req.Ctx, id)
				} else {
					err = api.Disable(req.Ctx, id)
					what = "Enterprise project disabled"
				}
				if err != nil {
					return "", err
				}
				return id, show(req, mod, present.Done(what, id))
			},
		}
	}
	enable, disable := toggle(true), toggle(false)

	// pickers only offer projects the action applies to
	list := func(wantStatus int) func(req *router.Request) ([]flow.Choice, error) {
		return func(req *router.Request) ([]flow.Choice, error) {
			api, err := projects(req)
			if err != nil {
				return nil, err
			}
			ps, err := api.List(req.Ctx, 0)
			if err != nil {
				return nil, err
			}
			var out []flow.Choice
			for _, p := range ps {
				if p.Status == wantStatus {
					out = append(out, flow.Choice{ID: p.ID, Label: label(p.Name, p.ID)})
				}
			}
			return out, nil
		}
	}

	return &flow.Module{
		Name:    mod,
		Title:   "Enterprise Project Management",
		Columns: 2,
		Actions: []flow.Action{
			{ID: "create", Title: "Create", Flow: create},
			{ID: "list", Title: "List", Run: func(req *router.Request) error {
				api, err := projects(req)
				if err != nil {
					return err
				}
				ps, err := api.List(req.Ctx, 0)
				if err != nil {
					return err
				}
				return show(req, mod, present.ProjectList(ps))
			}},
			{ID: "update_id", Title: "Update by id", Flow: update},
			{ID: "enable", Title: "Enable", Pick: &flow.Picker{
				Prompt: "Choose a project to enable:", Empty: "No disabled projects.",
				List: list(cloud.ProjectDisabled), Field: fEpsID, Flow: enable,
			}},
			{ID: "enable_id", Title: "Enable by id", Flow: enable},
			{ID: "disable", Title: "Disable", Pick: &flow.Picker{
				Prompt: "Choose a project to disable:", Empty: "No enabled projects.",
				List: list(cloud.ProjectEnabled), Field: fEpsID, Flow: disable,
			}},
			{ID: "disable_id", Title: "Disable by id", Flow: disable},
		},
	}
}
