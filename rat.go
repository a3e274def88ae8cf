// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	_ encoding.TextUnmarshaler = (*Rat)(nil)
	_ encoding.TextMarshaler   = Rat{}
)

var errDivisionByZero = errors.New("division by zero")

// DefaultMaxDenominator is the denominator limit used by Rationalize
// when Options.MaxDenominator is not set.
const DefaultMaxDenominator = 1000000

// Rat is a rational number.
// It's a lightweight version of math/big.Rat.
//
// The zero value is the fraction 0/0, which reads as 0 everywhere.
type Rat struct {
	num int64
	den int64
}

// NewRat returns num/den in lowest terms with a positive denominator.
func NewRat(num, den int64) (Rat, error) {
	if den == 0 {
		return Rat{}, errors.New("denominator must be non-zero")
	}
	return Rat{num: num, den: den}.Reduce(), nil
}

// MustNewRat is like NewRat, but panics if den is zero.
func MustNewRat(num, den int64) Rat {
	r, err := NewRat(num, den)
	if err != nil {
		panic(err)
	}
	return r
}

// IntRat returns the integer n as n/1.
func IntRat(n int64) Rat {
	return Rat{num: n, den: 1}
}

// Num returns the numerator of the rational number.
func (r Rat) Num() int64 {
	return r.num
}

// Den returns the denominator of the rational number.
func (r Rat) Den() int64 {
	return r.den
}

// norm maps the undefined 0/0 to 0/1.
func (r Rat) norm() Rat {
	if r.den == 0 && r.num == 0 {
		return Rat{num: 0, den: 1}
	}
	return r
}

// Float64 returns the float64 representation of the rational number.
func (r Rat) Float64() float64 {
	r = r.norm()
	return float64(r.num) / float64(r.den)
}

// IsInt reports whether the denominator is 1 after reduction.
func (r Rat) IsInt() bool {
	return r.Reduce().den == 1
}

// Sign returns -1, 0 or +1.
func (r Rat) Sign() int {
	r = r.Reduce()
	switch {
	case r.num < 0:
		return -1
	case r.num > 0:
		return 1
	default:
		return 0
	}
}

// Reduce returns r in lowest terms with a positive denominator.
func (r Rat) Reduce() Rat {
	r = r.norm()
	if r.den == 0 {
		return r
	}
	if r.den < 0 {
		r.num, r.den = -r.num, -r.den
	}
	d := gcd(abs64(r.num), r.den)
	if d > 1 {
		r.num, r.den = r.num/d, r.den/d
	}
	return r
}

// Add returns r+o.
func (r Rat) Add(o Rat) Rat {
	a, b := r.norm(), o.norm()
	return Rat{num: a.num*b.den + b.num*a.den, den: a.den * b.den}.Reduce()
}

// Sub returns r-o.
func (r Rat) Sub(o Rat) Rat {
	a, b := r.norm(), o.norm()
	return Rat{num: a.num*b.den - b.num*a.den, den: a.den * b.den}.Reduce()
}

// Mul returns r*o.
func (r Rat) Mul(o Rat) Rat {
	a, b := r.norm(), o.norm()
	return Rat{num: a.num * b.num, den: a.den * b.den}.Reduce()
}

// Div returns r/o.
func (r Rat) Div(o Rat) (Rat, error) {
	a, b := r.norm(), o.norm()
	if b.num == 0 {
		return Rat{}, errDivisionByZero
	}
	return Rat{num: a.num * b.den, den: a.den * b.num}.Reduce(), nil
}

// Neg returns -r.
func (r Rat) Neg() Rat {
	r = r.norm()
	return Rat{num: -r.num, den: r.den}
}

// Abs returns |r|.
func (r Rat) Abs() Rat {
	if r.Sign() < 0 {
		return r.Neg()
	}
	return r.norm()
}

// Cmp compares r and o and returns -1, 0 or +1.
func (r Rat) Cmp(o Rat) int {
	a, b := r.Reduce(), o.Reduce()
	x, y := a.num*b.den, b.num*a.den
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Trunc returns the integer part of r, rounded towards zero.
func (r Rat) Trunc() Rat {
	r = r.Reduce()
	if r.den == 0 {
		return r
	}
	return Rat{num: r.num / r.den, den: 1}
}

// Round rounds r to the given number of decimal places, half away from zero.
// The result is not reduced: its denominator is 10^places.
func (r Rat) Round(places int) Rat {
	r = r.Reduce()
	if r.den == 0 {
		return r
	}
	scale := int64(1)
	for i := 0; i < places; i++ {
		scale *= 10
	}
	n := r.num * scale
	q, rem := n/r.den, n%r.den
	if 2*abs64(rem) >= r.den {
		if n < 0 {
			q--
		} else {
			q++
		}
	}
	return Rat{num: q, den: scale}
}

// String returns the string representation of the rational number.
// If the denominator is 1, the string will be the numerator only.
func (r Rat) String() string {
	r = r.norm()
	if r.den == 1 {
		return strconv.FormatInt(r.num, 10)
	}
	return fmt.Sprintf("%d/%d", r.num, r.den)
}

// UnmarshalText accepts "n", "n/d" and decimal notation ("12.5"),
// the latter rationalized with DefaultMaxDenominator.
func (r *Rat) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		d, err2 := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err := errors.Join(err1, err2); err != nil {
			return fmt.Errorf("failed to parse %q as a rational number: %w", s, err)
		}
		r.num, r.den = n, d
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		r.num, r.den = n, 1
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("failed to parse %q as a rational number: %w", s, err)
	}
	*r = Rationalize(f, DefaultMaxDenominator)
	return nil
}

func (r Rat) MarshalText() (text []byte, err error) {
	return []byte(r.String()), nil
}

// Rationalize approximates f as a simple fraction.
//
// It walks the continued fraction expansion of |f| and returns the last
// convergent with a denominator not above maxDen, or the closer
// semiconvergent when the limit cuts the expansion short. The walk stops
// as soon as a convergent reproduces f exactly. The limit is lowered when
// needed so that the numerator fits in 32 bits.
func Rationalize(f float64, maxDen int64) Rat {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rat{num: 0, den: 1}
	}
	if maxDen < 1 {
		maxDen = 1
	}
	x := math.Abs(f)
	if x >= 1 {
		if lim := int64(math.MaxUint32 / x); lim < maxDen {
			maxDen = max(lim, 1)
		}
	}

	p0, q0, p1, q1 := int64(0), int64(1), int64(1), int64(0)
	rem := x
	for i := 0; i < 64; i++ {
		a := math.Floor(rem)
		if q1 > 0 && a > float64((maxDen-q0)/q1) {
			// The next convergent is out of range; try the best semiconvergent.
			k := (maxDen - q0) / q1
			if k > 0 {
				sp, sq := p0+k*p1, q0+k*q1
				if math.Abs(float64(sp)/float64(sq)-x) < math.Abs(float64(p1)/float64(q1)-x) {
					p1, q1 = sp, sq
				}
			}
			break
		}
		ai := int64(a)
		p0, q0, p1, q1 = p1, q1, p0+ai*p1, q0+ai*q1
		frac := rem - a
		if frac == 0 || float64(p1)/float64(q1) == x {
			break
		}
		rem = 1 / frac
	}

	if f < 0 {
		p1 = -p1
	}
	return Rat{num: p1, den: q1}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
