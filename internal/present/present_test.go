package present

import (
	"fmt"
	"strings"
	"testing"

	"github.com/m3rciful/cloudbot/internal/cloud"
)

func TestVPCEscapesAndSkipsEmpty(t *testing.T) {
	out := VPC(cloud.VPCInfo{ID: "v1", Name: "a<b>", CIDR: "10.0.0.0/16"})
	if !strings.Contains(out, "<b>VPC a&lt;b&gt;</b>") {
		t.Fatalf("title not escaped: %s", out)
	}
	if strings.Contains(out, "Description") {
		t.Fatalf("empty field rendered: %s", out)
	}
}

func TestListCaps(t *testing.T) {
	vs := make([]cloud.VPCInfo, listCap+5)
	for i := range vs {
		vs[i] = cloud.VPCInfo{ID: fmt.Sprintf("id-%d", i), Name: "n"}
	}
	out := VPCList(vs)
	if !strings.Contains(out, "… and 5 more") {
		t.Fatalf("missing overflow marker: %s", out)
	}
	if !strings.Contains(VPCList(nil), "None.") {
		t.Fatalf("empty list not marked")
	}
}

func TestMetrics(t *testing.T) {
	v := 12.5
	out := Metrics("ECS i-1", []cloud.MetricData{
		{MetricName: "cpu_util", Unit: "%", Datapoints: []cloud.Datapoint{{Average: &v}}},
		{MetricName: "network_vm_connections"},
	})
	if !strings.Contains(out, "cpu_util (%): <code>12.5</code>") {
		t.Fatalf("unexpected metrics output: %s", out)
	}
	if !strings.Contains(out, "network_vm_connections: <code>no data</code>") {
		t.Fatalf("missing empty series: %s", out)
	}
}

func TestTerraformVPC(t *testing.T) {
	out, err := Terraform("vpc", TerraformVPC{Name: "prod net", CIDR: "10.0.0.0/16", Description: `say "hi" ${x}`})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `resource "sbercloud_vpc" "prod_net" {
  name                  = "prod net"
  cidr                  = "10.0.0.0/16"
  description           = "say \"hi\" $${x}"
}`
	if out != want {
		t.Fatalf("unexpected hcl:\n%s\nwant:\n%s", out, want)
	}
}

func TestTerraformECSAndLabels(t *testing.T) {
	out, err := Terraform("ecs", TerraformECS{Name: "1web", FlavorID: "s6.small.1", ImageID: "img", SubnetID: "sn"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, `resource "sbercloud_compute_instance" "r_1web" {`) {
		t.Fatalf("unexpected label: %s", out)
	}
	if !strings.Contains(out, `uuid = "sn"`) {
		t.Fatalf("missing network block: %s", out)
	}
	if _, err := Terraform("nope", nil); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestNATSpecName(t *testing.T) {
	if got := NATSpecName("2"); got != "2 (medium)" {
		t.Fatalf("got %q", got)
	}
	if got := NATSpecName("9"); got != "9" {
		t.Fatalf("got %q", got)
	}
}
