package ui

import "testing"

func TestGridRows(t *testing.T) {
	buttons := []Button{
		Btn("VPC", "vpc", "menu"),
		Btn("Subnet", "subnet", "menu"),
		Btn("NAT", "nat", "menu"),
	}
	m := Grid(buttons, 2)
	if len(m.Rows) != 2 || len(m.Rows[0]) != 2 || len(m.Rows[1]) != 1 {
		t.Fatalf("unexpected layout: %+v", m.Rows)
	}
	m.Add(Btn("Back", "main", "menu"))
	all := m.Buttons()
	if len(all) != 4 || all[3].Payload.Module != "main" {
		t.Fatalf("unexpected buttons: %+v", all)
	}
	if got := Grid(buttons, 0); len(got.Rows) != 3 {
		t.Fatalf("perRow<=0 must put one button per row, got %d rows", len(got.Rows))
	}
}

func TestMessageBuilders(t *testing.T) {
	m := HTML("<b>x</b>").WithMenu(&Menu{})
	if !m.HTML || m.Menu == nil {
		t.Fatalf("unexpected message %+v", m)
	}
	if Text("x").HTML {
		t.Fatal("plain text must not use HTML mode")
	}
}
