package modules

import (
	"context"

	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

const fInstanceID = "instance_id"

// IMS is the image menu.
func IMS(d Deps) *flow.Module {
	const mod = "ims"

	images := func(req *router.Request) (cloud.ImageAPI, error) {
		c, err := d.client(req, cloud.IMS)
		if err != nil {
			return cloud.ImageAPI{}, err
		}
		return cloud.Images(c), nil
	}

	steps := func() []flow.Step {
		return []flow.Step{nameStep("image"), idStep(fInstanceID, "server"), descriptionStep()}
	}

	type createFunc func(cloud.ImageAPI, context.Context, cloud.CreateImage) (cloud.ImageJob, error)
	creator := func(what string, call createFunc) *flow.Flow {
		return &flow.Flow{
			Steps: steps(),
			Finish: func(req *router.Request, f state.Fields) (string, error) {
				api, err := images(req)
				if err != nil {
					return "", err
				}
				job, err := call(api, req.Ctx, cloud.CreateImage{
					Name:        f.Get(fName),
					InstanceID:  f.Get(fInstanceID),
					Description: optional(f.Get(fDescription)),
				})
				if err != nil {
					return "", err
				}
				return job.JobID, show(req, mod, present.Job(what+" "+f.Get(fName), job.JobID))
			},
		}
	}

	createTF := &flow.Flow{
		Steps: steps(),
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			return terraform(req, mod, "image", present.TerraformImage{
				Name:        f.Get(fName),
				InstanceID:  f.Get(fInstanceID),
				Description: optional(f.Get(fDescription)),
			})
		},
	}

	showFlow := &flow.Flow{
		Steps: []flow.Step{idStep(fImageID, "image")},
		Finish: func(req *router.Request, f state.Fields) (string, error) {
			api, err := images(req)
			if err != nil {
				return "", err
			}
			im, err := api.Show(req.Ctx, f.Get(fImageID))
			if err != nil {
				return "", err
			}
			return im.ID, show(req, mod, present.Image(im))
		},
	}

	return &flow.Module{
		Name:    mod,
		Title:   "Image Management Service",
		Columns: 2,
		Actions: []flow.Action{
			{ID: "create", Title: "Create system image", Flow: creator("System image", cloud.ImageAPI.CreateSystemImage)},
			{ID: "create_whole", Title: "Create whole image", Flow: creator("Whole image", cloud.ImageAPI.CreateWholeImage)},
			{ID: "create_tf", Title: "Create Terraform", Flow: createTF},
			{ID: "list", Title: "List private", Run: func(req *router.Request) error {
				api, err := images(req)
				if err != nil {
					return err
				}
				ims, err := api.ListPrivate(req.Ctx, 0)
				if err != nil {
					return err
				}
				return show(req, mod, present.ImageList(ims))
			}},
			{ID: "show", Title: "Show", Pick: &flow.Picker{
				Prompt: "Choose an image:",
				Empty:  "No private images yet.",
				Field:  fImageID,
				Flow:   showFlow,
				List: func(req *router.Request) ([]flow.Choice, error) {
					api, err := images(req)
					if err != nil {
						return nil, err
					}
					ims, err := api.ListPrivate(req.Ctx, 0)
					return choices(ims, func(im cloud.Image) flow.Choice {
						return flow.Choice{ID: im.ID, Label: label(im.Name, im.ID)}
					}), err
				},
			}},
			{ID: "show_id", Title: "Show by id", Flow: showFlow},
		},
	}
}
