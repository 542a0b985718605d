package present

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"text/template"
)

var tfFuncs = template.FuncMap{"q": hclString, "label": hclLabel}

var tfTemplates = template.Must(template.New("tf").Funcs(tfFuncs).Parse(`
{{- define "vpc" -}}
resource "sbercloud_vpc" {{ label .Name }} {
  name                  = {{ q .Name }}
  cidr                  = {{ q .CIDR }}
  description           = {{ q .Description }}
{{- if .EnterpriseProjectID }}
  enterprise_project_id = {{ q .EnterpriseProjectID }}
{{- end }}
}
{{- end -}}

{{- define "subnet" -}}
resource "sbercloud_vpc_subnet" {{ label .Name }} {
  name        = {{ q .Name }}
  cidr        = {{ q .CIDR }}
  gateway_ip  = {{ q .GatewayIP }}
  vpc_id      = {{ q .VpcID }}
{{- if .Description }}
  description = {{ q .Description }}
{{- end }}
}
{{- end -}}

{{- define "nat" -}}
resource "sbercloud_nat_gateway" {{ label .Name }} {
  name                  = {{ q .Name }}
  description           = {{ q .Description }}
  spec                  = {{ q .Spec }}
  router_id             = {{ q .RouterID }}
  internal_network_id   = {{ q .InternalNetworkID }}
{{- if .EnterpriseProjectID }}
  enterprise_project_id = {{ q .EnterpriseProjectID }}
{{- end }}
}
{{- end -}}

{{- define "ecs" -}}
resource "sbercloud_compute_instance" {{ label .Name }} {
  name      = {{ q .Name }}
  flavor_id = {{ q .FlavorID }}
  image_id  = {{ q .ImageID }}

  system_disk_type = "SSD"

  network {
    uuid = {{ q .SubnetID }}
  }
}
{{- end -}}

{{- define "image" -}}
resource "sbercloud_images_image" {{ label .Name }} {
  name        = {{ q .Name }}
  instance_id = {{ q .InstanceID }}
{{- if .Description }}
  description = {{ q .Description }}
{{- end }}
}
{{- end -}}
`))

// TerraformVPC holds the attributes of an sbercloud_vpc resource.
type TerraformVPC struct {
	Name, CIDR, Description, EnterpriseProjectID string
}

// TerraformSubnet holds the attributes of an sbercloud_vpc_subnet resource.
type TerraformSubnet struct {
	Name, CIDR, GatewayIP, VpcID, Description string
}

// TerraformNAT holds the attributes of an sbercloud_nat_gateway resource.
type TerraformNAT struct {
	Name, Description, Spec, RouterID, InternalNetworkID, EnterpriseProjectID string
}

// TerraformECS holds the attributes of an sbercloud_compute_instance resource.
type TerraformECS struct {
	Name, FlavorID, ImageID, SubnetID string
}

// TerraformImage holds the attributes of an sbercloud_images_image resource.
type TerraformImage struct {
	Name, InstanceID, Description string
}

// Terraform renders one resource block. kind is vpc, subnet, nat, ecs or image.
func Terraform(kind string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tfTemplates.ExecuteTemplate(&buf, kind, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// hclString quotes s as an HCL string literal; "${" and "%{" start
// template sequences in HCL and are escaped.
func hclString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	out := strings.TrimSuffix(buf.String(), "\n")
	out = strings.ReplaceAll(out, "${", "$${")
	return strings.ReplaceAll(out, "%{", "%%{")
}

var labelUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// hclLabel turns a resource name into a quoted block label.
func hclLabel(name string) string {
	l := labelUnsafe.ReplaceAllString(strings.TrimSpace(name), "_")
	if l == "" || !(l[0] == '_' || (l[0] >= 'A' && l[0] <= 'Z') || (l[0] >= 'a' && l[0] <= 'z')) {
		l = "r_" + l
	}
	return `"` + l + `"`
}
