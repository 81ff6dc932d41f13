// Package fraction implements exact rational arithmetic for musical durations.
package fraction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/enigma/internal/apperr"
)

// Fraction is an exact rational number. The zero value is 0/1.
//
// Values are always stored reduced with a positive denominator. Compare with
// Equal or Cmp rather than ==, since the zero value and Zero differ in layout.
type Fraction struct {
	num int64
	den int64 // 0 in the zero value, read as 1
}

// Zero and One are convenience constants.
var (
	Zero = Fraction{num: 0, den: 1}
	One  = Fraction{num: 1, den: 1}
)

// New returns num/den reduced. A zero denominator is an invalid argument.
func New(num, den int64) (Fraction, error) {
	if den == 0 {
		return Fraction{}, fmt.Errorf("fraction: %d/0: %w", num, apperr.ErrInvalidArgument)
	}
	return normalize(num, den), nil
}

// MustNew is like New but panics on a zero denominator. Intended for constants
// and tests.
func MustNew(num, den int64) Fraction {
	f, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return f
}

// FromInt returns n/1.
func FromInt(n int64) Fraction {
	return Fraction{num: n, den: 1}
}

func normalize(num, den int64) Fraction {
	if den < 0 {
		num, den = -num, -den
	}
	if num == 0 {
		return Fraction{num: 0, den: 1}
	}
	g := gcd(abs(num), den)
	return Fraction{num: num / g, den: den / g}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}

// Num returns the reduced numerator.
func (f Fraction) Num() int64 { return f.num }

// Den returns the reduced denominator (always positive).
func (f Fraction) Den() int64 {
	if f.den == 0 {
		return 1
	}
	return f.den
}

// Add returns f + o.
func (f Fraction) Add(o Fraction) Fraction {
	fd, od := f.Den(), o.Den()
	g := gcd(fd, od)
	// lcm-based to keep intermediates small
	return normalize(f.num*(od/g)+o.num*(fd/g), fd/g*od)
}

// Sub returns f - o.
func (f Fraction) Sub(o Fraction) Fraction {
	return f.Add(o.Neg())
}

// Neg returns -f.
func (f Fraction) Neg() Fraction {
	return Fraction{num: -f.num, den: f.Den()}
}

// Mul returns f * o.
func (f Fraction) Mul(o Fraction) Fraction {
	if f.num == 0 || o.num == 0 {
		return Zero
	}
	fd, od := f.Den(), o.Den()
	g1 := gcd(abs(f.num), od)
	g2 := gcd(abs(o.num), fd)
	return normalize((f.num/g1)*(o.num/g2), (fd/g2)*(od/g1))
}

// Div returns f / o. Dividing by zero is an invalid argument.
func (f Fraction) Div(o Fraction) (Fraction, error) {
	if o.num == 0 {
		return Fraction{}, fmt.Errorf("fraction: %s divided by zero: %w", f, apperr.ErrInvalidArgument)
	}
	return f.Mul(Fraction{num: o.Den(), den: o.num}.norm()), nil
}

// Inverse returns 1/f. Inverting zero is an invalid argument.
func (f Fraction) Inverse() (Fraction, error) {
	return One.Div(f)
}

func (f Fraction) norm() Fraction {
	return normalize(f.num, f.Den())
}

// Cmp compares f and o and returns -1, 0 or +1.
func (f Fraction) Cmp(o Fraction) int {
	// denominators are positive, so cross multiplication keeps the sign
	l := f.num * o.Den()
	r := o.num * f.Den()
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

// Equal reports whether f and o represent the same value.
func (f Fraction) Equal(o Fraction) bool {
	return f.num == o.num && f.Den() == o.Den()
}

// Sign returns -1, 0 or +1.
func (f Fraction) Sign() int {
	switch {
	case f.num < 0:
		return -1
	case f.num > 0:
		return 1
	}
	return 0
}

// IsZero reports whether f is 0.
func (f Fraction) IsZero() bool { return f.num == 0 }

// Float64 returns the nearest float64 value. For display only.
func (f Fraction) Float64() float64 {
	return float64(f.num) / float64(f.Den())
}

// String formats f as "n/d", or "n" when the denominator is 1.
func (f Fraction) String() string {
	if f.Den() == 1 {
		return strconv.FormatInt(f.num, 10)
	}
	return strconv.FormatInt(f.num, 10) + "/" + strconv.FormatInt(f.Den(), 10)
}

// Parse reads the String form.
func Parse(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	n, d, found := strings.Cut(s, "/")
	num, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("fraction: parse %q: %w", s, apperr.ErrInvalidArgument)
	}
	if !found {
		return FromInt(num), nil
	}
	den, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("fraction: parse %q: %w", s, apperr.ErrInvalidArgument)
	}
	return New(num, den)
}

// MarshalJSON encodes f as its string form.
func (f Fraction) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes the string form.
func (f *Fraction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}
