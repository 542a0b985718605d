// Package present renders cloud resources as Telegram HTML.
package present

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/cloudbot/core/telegram/format"
	"github.com/m3rciful/cloudbot/internal/cloud"
)

// MaxMessage is the longest message Telegram accepts, in runes.
const MaxMessage = 4096

// listCap keeps long listings inside one message.
const listCap = 30

// VPC renders one VPC.
func VPC(v cloud.VPCInfo) string {
	var l format.Lines
	l.Title("VPC " + v.Name).
		Field("ID", v.ID).
		Field("CIDR", v.CIDR).
		Field("Status", v.Status).
		Field("Description", v.Description).
		Field("Enterprise project", v.EnterpriseProjectID)
	return l.String()
}

// VPCList renders VPCs one per line.
func VPCList(vs []cloud.VPCInfo) string {
	return list("VPCs", len(vs), func(i int) string {
		return row(vs[i].Name, vs[i].ID, vs[i].CIDR, vs[i].Status)
	})
}

// Subnet renders one subnet.
func Subnet(s cloud.Subnet) string {
	var l format.Lines
	l.Title("Subnet " + s.Name).
		Field("ID", s.ID).
		Field("VPC", s.VpcID).
		Field("CIDR", s.CIDR).
		Field("Gateway", s.GatewayIP).
		Field("Zone", s.AvailabilityZone).
		Field("Status", s.Status).
		Field("Description", s.Description)
	return l.String()
}

// SubnetList renders subnets one per line.
func SubnetList(ss []cloud.Subnet) string {
	return list("Subnets", len(ss), func(i int) string {
		return row(ss[i].Name, ss[i].ID, ss[i].CIDR, "vpc "+ss[i].VpcID)
	})
}

// NAT renders one NAT gateway.
func NAT(n cloud.NATGateway) string {
	var l format.Lines
	l.Title("NAT gateway " + n.Name).
		Field("ID", n.ID).
		Field("Spec", NATSpecName(n.Spec)).
		Field("Status", n.Status).
		Field("Router (VPC)", n.RouterID).
		Field("Subnet", n.InternalNetworkID).
		Field("Enterprise project", n.EnterpriseProjectID).
		Field("Created", n.CreatedAt).
		Field("Description", n.Description)
	return l.String()
}

// NATList renders NAT gateways one per line.
func NATList(ns []cloud.NATGateway) string {
	return list("NAT gateways", len(ns), func(i int) string {
		return row(ns[i].Name, ns[i].ID, NATSpecName(ns[i].Spec), ns[i].Status)
	})
}

// NATSpecName spells out the gateway size.
func NATSpecName(spec string) string {
	names := map[string]string{"1": "small", "2": "medium", "3": "large", "4": "extra-large"}
	if n, ok := names[spec]; ok {
		return spec + " (" + n + ")"
	}
	return spec
}

// Server renders one ECS instance.
func Server(s cloud.Server) string {
	var l format.Lines
	l.Title("Server " + s.Name).
		Field("ID", s.ID).
		Field("Status", s.Status).
		Field("Flavor", firstNonEmpty(s.Flavor.Name, s.Flavor.ID)).
		Field("Image", s.Image.ID).
		Field("Zone", s.Zone).
		Field("Addresses", strings.Join(s.IPs(), ", ")).
		Field("Created", s.Created)
	return l.String()
}

// ServerList renders servers one per line.
func ServerList(ss []cloud.Server) string {
	return list("Servers", len(ss), func(i int) string {
		return row(ss[i].Name, ss[i].ID, ss[i].Status, strings.Join(ss[i].IPs(), ","))
	})
}

// Flavor renders one flavor.
func Flavor(f cloud.Flavor) string {
	var l format.Lines
	l.Title("Flavor " + f.Name).
		Field("ID", f.ID).
		Field("vCPUs", string(f.VCPUs)).
		Field("RAM, MiB", string(f.RAM)).
		Field("Performance", f.Extra.Performance)
	return l.String()
}

// FlavorList renders flavors one per line.
func FlavorList(fs []cloud.Flavor) string {
	return list("Flavors", len(fs), func(i int) string {
		return row(fs[i].Name, "", string(fs[i].VCPUs)+" vCPU", string(fs[i].RAM)+" MiB")
	})
}

// Project renders one enterprise project.
func Project(p cloud.EnterpriseProject) string {
	var l format.Lines
	l.Title("Enterprise project " + p.Name).
		Field("ID", p.ID).
		Field("Status", projectStatus(p)).
		Field("Created", p.CreatedAt).
		Field("Description", p.Description)
	return l.String()
}

// ProjectList renders enterprise projects one per line.
func ProjectList(ps []cloud.EnterpriseProject) string {
	return list("Enterprise projects", len(ps), func(i int) string {
		return row(ps[i].Name, ps[i].ID, projectStatus(ps[i]))
	})
}

func projectStatus(p cloud.EnterpriseProject) string {
	switch p.Status {
	case cloud.ProjectEnabled:
		return "enabled"
	case cloud.ProjectDisabled:
		return "disabled"
	}
	return strconv.Itoa(p.Status)
}

// Image renders one image.
func Image(im cloud.Image) string {
	var l format.Lines
	l.Title("Image " + im.Name).
		Field("ID", im.ID).
		Field("Status", im.Status).
		Field("OS", im.OSVersion).
		Field("Type", im.ImageType).
		Field("Min disk, GB", nonZero(im.MinDisk)).
		Field("Created", im.CreatedAt).
		Field("Description", im.Description)
	return l.String()
}

// ImageList renders images one per line.
func ImageList(ims []cloud.Image) string {
	return list("Private images", len(ims), func(i int) string {
		return row(ims[i].Name, ims[i].ID, ims[i].Status)
	})
}

// Metrics renders one line per metric: name, unit and the averages.
func Metrics(title string, data []cloud.MetricData) string {
	var l format.Lines
	l.Title(title)
	if len(data) == 0 {
		l.Text("No data for the period.")
		return l.String()
	}
	for _, m := range data {
		values := make([]string, 0, len(m.Datapoints))
		for _, dp := range m.Datapoints {
			if dp.Average != nil {
				values = append(values, strconv.FormatFloat(*dp.Average, 'f', -1, 64))
			}
		}
		label := m.MetricName
		if m.Unit != "" {
			label += " (" + m.Unit + ")"
		}
		if len(values) == 0 {
			values = append(values, "no data")
		}
		l.Field(label, strings.Join(values, ", "))
	}
	return l.String()
}

// Created confirms an accepted create call.
func Created(kind, name, id string) string {
	var l format.Lines
	l.Title(kind + " created").Field("Name", name).Field("ID", id)
	return l.String()
}

// Job confirms an asynchronous provider job.
func Job(what, jobID string) string {
	var l format.Lines
	l.Title(what + " accepted").Field("Job", jobID)
	return l.String()
}

// Done confirms a finished action on a resource.
func Done(what, id string) string {
	var l format.Lines
	l.Title(what).Field("ID", id)
	return l.String()
}

// TerraformBlock wraps HCL for display.
func TerraformBlock(hcl string) string {
	return format.Pre(hcl, "hcl")
}

// Operation is one journal line.
type Operation struct {
	Module, Action, Outcome, ResourceID, Error string
	At                                         time.Time
}

// History renders the latest operations of a user.
func History(ops []Operation) string {
	var l format.Lines
	l.Title("Recent operations")
	if len(ops) == 0 {
		l.Text("Nothing yet.")
		return l.String()
	}
	for _, op := range ops {
		line := fmt.Sprintf("%s %s.%s %s", op.At.UTC().Format("01-02 15:04"), op.Module, op.Action, op.Outcome)
		if op.ResourceID != "" {
			line += " " + op.ResourceID
		}
		if op.Error != "" {
			line += ": " + format.Truncate(op.Error, 80)
		}
		l.Text(line)
	}
	return l.String()
}

func list(title string, n int, item func(i int) string) string {
	var l format.Lines
	l.Title(fmt.Sprintf("%s (%d)", title, n))
	if n == 0 {
		l.Text("None.")
		return l.String()
	}
	for i := 0; i < n && i < listCap; i++ {
		l.Text(item(i))
	}
	if n > listCap {
		l.Text(fmt.Sprintf("… and %d more", n-listCap))
	}
	return format.Truncate(l.String(), MaxMessage)
}

// row joins the non-empty parts of a listing line.
func row(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " · ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonZero(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
