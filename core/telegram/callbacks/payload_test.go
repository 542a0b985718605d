package callbacks

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Payload{
		New("vpc", "menu"),
		New("subnet", "delete", "do", "6c1b3a4e-7f15-4c59-9b8e-2d5f0a1c9e77"),
		New("nat", "update", "back"),
		New("eps", "toggle", "a|b", "50%"),
		New("ims", "show", ""),
	}
	for _, p := range cases {
		data, err := Encode(p)
		if err != nil {
			t.Fatalf("encode %v: %v", p, err)
		}
		if !strings.HasPrefix(data, "\f") {
			t.Fatalf("encoded data %q lacks telebot prefix", data)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("decode %q: %v", data, err)
		}
		if got.Module != p.Module || got.Action != p.Action || !slices.Equal(got.Args, p.Args) {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, p)
		}
	}
}

func TestDecodeWithoutPrefix(t *testing.T) {
	p, err := Decode("ecs|list")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Key() != "ecs|list" || len(p.Args) != 0 {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, data := range []string{"", "\f", "vpc", "\fvpc", "|list", "vpc|", "vpc|%zz", "\f|"} {
		if _, err := Decode(data); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q) err = %v, want ErrMalformed", data, err)
		}
	}
}

func TestEncodeRejectsOversizedAndEmpty(t *testing.T) {
	if _, err := Encode(New("vpc", "")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("empty action err = %v", err)
	}
	long := strings.Repeat("x", MaxDataLen)
	if _, err := Encode(New("vpc", "show", long)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("oversized err = %v", err)
	}
}

func TestPayloadArg(t *testing.T) {
	p := New("nat", "delete", "do", "id-1")
	if p.Arg(0) != "do" || p.Arg(1) != "id-1" || p.Arg(2) != "" || p.Arg(-1) != "" {
		t.Fatalf("unexpected args access for %+v", p)
	}
}
