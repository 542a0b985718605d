package modules

import (
	"github.com/m3rciful/cloudbot/core/telegram/flow"
	"github.com/m3rciful/cloudbot/core/telegram/router"
	"github.com/m3rciful/cloudbot/core/telegram/state"
	"github.com/m3rciful/cloudbot/internal/cloud"
	"github.com/m3rciful/cloudbot/internal/present"
)

const fResource = "resource"

// CES is the Cloud Eye monitoring menu.
func CES(d Deps) *flow.Module {
	const mod = "ces"

	metrics := func(title, prompt string, set cloud.MetricSet) *flow.Flow {
		return &flow.Flow{
			Steps: []flow.Step{{Name: "resource", Field: fResource, Prompt: prompt, Validate: notBlank}},
			Finish: func(req *router.Request, f state.Fields) (string, error) {
				c, err := d.client(req, cloud.CES)
				if err != nil {
					return "", err
				}
				id := f.Get(fResource)
				data, err := cloud.Metrics(c).Query(req.Ctx, set, id, d.now())
				if err != nil {
					return "", err
				}
				return id, show(req, mod, present.Metrics(title+" "+id, data))
			},
		}
	}

	return &flow.Module{
		Name:    mod,
		Title:   "Cloud Eye Monitoring",
		Columns: 2,
		Actions: []flow.Action{
			{ID: "ecs", Title: "Show ECS metrics", Flow: metrics("ECS", "Enter the ECS id:", cloud.ECSMetrics)},
			{ID: "nat", Title: "Show NAT metrics", Flow: metrics("NAT", "Enter the NAT id:", cloud.NATMetrics)},
			{ID: "evs", Title: "Show EVS metrics", Flow: metrics("EVS", "Enter the EVS disk name:", cloud.EVSMetrics)},
		},
	}
}
