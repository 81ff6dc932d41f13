package fraction

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/enigma/internal/apperr"
)

func TestNew_Reduces(t *testing.T) {
	f := MustNew(2048, 4096)
	if f.Num() != 1 || f.Den() != 2 {
		t.Errorf("got %s, want 1/2", f)
	}
	g := MustNew(3, -6)
	if g.Num() != -1 || g.Den() != 2 {
		t.Errorf("got %s, want -1/2", g)
	}
}

func TestNew_ZeroDenominator(t *testing.T) {
	_, err := New(1, 0)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestZeroValue(t *testing.T) {
	var f Fraction
	if !f.IsZero() || f.Den() != 1 {
		t.Errorf("zero value = %s", f)
	}
	if !f.Equal(Zero) {
		t.Error("zero value should equal Zero")
	}
	if got := f.Add(MustNew(1, 4)); !got.Equal(MustNew(1, 4)) {
		t.Errorf("0 + 1/4 = %s", got)
	}
}

func TestArithmetic(t *testing.T) {
	a := MustNew(1, 3)
	b := MustNew(1, 6)

	if got := a.Add(b); !got.Equal(MustNew(1, 2)) {
		t.Errorf("1/3 + 1/6 = %s, want 1/2", got)
	}
	if got := a.Sub(b); !got.Equal(MustNew(1, 6)) {
		t.Errorf("1/3 - 1/6 = %s, want 1/6", got)
	}
	if got := a.Mul(b); !got.Equal(MustNew(1, 18)) {
		t.Errorf("1/3 * 1/6 = %s, want 1/18", got)
	}
	got, err := a.Div(b)
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if !got.Equal(FromInt(2)) {
		t.Errorf("1/3 / 1/6 = %s, want 2", got)
	}
}

func TestDiv_ByZero(t *testing.T) {
	_, err := One.Div(Zero)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if _, err := Zero.Inverse(); err == nil {
		t.Error("inverse of zero should fail")
	}
}

func TestDiv_NegativeDivisor(t *testing.T) {
	got, err := MustNew(1, 2).Div(MustNew(-1, 4))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(FromInt(-2)) {
		t.Errorf("got %s, want -2", got)
	}
}

func TestCmpAndSign(t *testing.T) {
	if MustNew(1, 3).Cmp(MustNew(1, 2)) != -1 {
		t.Error("1/3 should be < 1/2")
	}
	if MustNew(2, 4).Cmp(MustNew(1, 2)) != 0 {
		t.Error("2/4 should equal 1/2")
	}
	if MustNew(-1, 5).Sign() != -1 || Zero.Sign() != 0 || One.Sign() != 1 {
		t.Error("unexpected sign")
	}
}

func TestRepeatedNestedMultiplicationStaysExact(t *testing.T) {
	// eight levels of 2:3 nesting
	r := MustNew(2, 3)
	acc := One
	for i := 0; i < 8; i++ {
		acc = acc.Mul(r)
	}
	if acc.Num() != 256 || acc.Den() != 6561 {
		t.Errorf("got %s, want 256/6561", acc)
	}
	// undo it exactly
	for i := 0; i < 8; i++ {
		var err error
		acc, err = acc.Div(r)
		if err != nil {
			t.Fatal(err)
		}
	}
	if !acc.Equal(One) {
		t.Errorf("round trip = %s, want 1", acc)
	}
}

func TestStringAndParse(t *testing.T) {
	cases := map[string]Fraction{
		"3/4":  MustNew(3, 4),
		"2":    FromInt(2),
		"-1/8": MustNew(-1, 8),
	}
	for s, want := range cases {
		if got := want.String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
		p, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if !p.Equal(want) {
			t.Errorf("Parse(%q) = %s", s, p)
		}
	}
	if _, err := Parse("x/2"); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Parse("1/0"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("Parse(1/0) err = %v", err)
	}
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Fraction{"d": MustNew(5, 16)})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"d":"5/16"}` {
		t.Errorf("json = %s", data)
	}
	var out map[string]Fraction
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !out["d"].Equal(MustNew(5, 16)) {
		t.Errorf("decoded = %s", out["d"])
	}
}

func TestFloat64(t *testing.T) {
	if got := MustNew(3, 8).Float64(); got != 0.375 {
		t.Errorf("Float64 = %v, want 0.375", got)
	}
}
