package format

import "testing"

func TestLines(t *testing.T) {
	var l Lines
	l.Title("VPC <prod>").Field("ID", "v-1").Field("Description", "").Field("CIDR", "10.0.0.0/16")
	want := "<b>VPC &lt;prod&gt;</b>\nID: <code>v-1</code>\nCIDR: <code>10.0.0.0/16</code>"
	if got := l.String(); got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestBlankKeepsParagraphs(t *testing.T) {
	var l Lines
	l.Title("a").Blank().Text("b & c")
	if got := l.String(); got != "<b>a</b>\n\nb &amp; c" {
		t.Fatalf("got %q", got)
	}
}

func TestPre(t *testing.T) {
	if got := Pre(`name = "x"`, "hcl"); got != `<pre><code class="language-hcl">name = &#34;x&#34;</code></pre>` {
		t.Fatalf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("привет мир", 6); got != "приве…" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
}
