// Copyright 2024 Bjørn Erik Pedersen
// SPDX-License-Identifier: MIT

package geotag

import (
	"encoding"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
)

var eq = qt.CmpEquals(
	cmp.Comparer(func(x, y Rat) bool {
		return x.num == y.num && x.den == y.den
	}),

	cmp.Comparer(func(x, y float64) bool {
		return cmpFloats(x, y)
	}),
)

func cmpFloats(x, y float64) bool {
	if x == y {
		return true
	}
	delta := math.Abs(x - y)
	mean := math.Abs(x+y) / 2.0
	return delta/mean < 0.00001
}

func TestRat(t *testing.T) {
	c := qt.New(t)

	c.Run("NewRat", func(c *qt.C) {
		r, err := NewRat(1, 2)
		c.Assert(err, qt.IsNil)
		c.Assert(r.Num(), qt.Equals, int64(1))
		c.Assert(r.Den(), qt.Equals, int64(2))

		_, err = NewRat(10, 0)
		c.Assert(err, qt.ErrorMatches, "denominator must be non-zero")

		// Normalization
		// Denominator must be positive.
		r, err = NewRat(13, -3)
		c.Assert(err, qt.IsNil)
		c.Assert(r.Num(), qt.Equals, int64(-13))
		c.Assert(r.Den(), qt.Equals, int64(3))
		// Remove the greatest common divisor.
		r = MustNewRat(90, 600)
		c.Assert(r.Num(), qt.Equals, int64(3))
		c.Assert(r.Den(), qt.Equals, int64(20))

		c.Assert(func() { MustNewRat(1, 0) }, qt.PanicMatches, "denominator must be non-zero")
	})

	c.Run("Zero value", func(c *qt.C) {
		var r Rat
		c.Assert(r.Float64(), qt.Equals, 0.0)
		c.Assert(r.String(), qt.Equals, "0")
		c.Assert(r.Sign(), qt.Equals, 0)
		c.Assert(r.Add(IntRat(2)), qt.Equals, IntRat(2))
	})

	c.Run("Arithmetic", func(c *qt.C) {
		half, third := MustNewRat(1, 2), MustNewRat(1, 3)
		c.Assert(half.Add(third), qt.Equals, MustNewRat(5, 6))
		c.Assert(half.Sub(third), qt.Equals, MustNewRat(1, 6))
		c.Assert(third.Sub(half), qt.Equals, MustNewRat(-1, 6))
		c.Assert(half.Mul(third), qt.Equals, MustNewRat(1, 6))
		q, err := half.Div(third)
		c.Assert(err, qt.IsNil)
		c.Assert(q, qt.Equals, MustNewRat(3, 2))
		_, err = half.Div(Rat{})
		c.Assert(err, qt.ErrorMatches, "division by zero")
		c.Assert(half.Neg(), qt.Equals, MustNewRat(-1, 2))
		c.Assert(half.Neg().Abs(), qt.Equals, half)
		c.Assert(half.Cmp(third), qt.Equals, 1)
		c.Assert(third.Cmp(half), qt.Equals, -1)
		c.Assert(MustNewRat(2, 4).Cmp(half), qt.Equals, 0)
		c.Assert(MustNewRat(7, 2).Trunc(), qt.Equals, IntRat(3))
		c.Assert(MustNewRat(-7, 2).Trunc(), qt.Equals, IntRat(-3))
		c.Assert(IntRat(4).IsInt(), qt.IsTrue)
		c.Assert(half.IsInt(), qt.IsFalse)
	})

	c.Run("Round", func(c *qt.C) {
		r := MustNewRat(228, 10).Round(3)
		c.Assert(r.Num(), qt.Equals, int64(22800))
		c.Assert(r.Den(), qt.Equals, int64(1000))
		c.Assert(MustNewRat(1, 3).Round(2), qt.Equals, Rat{num: 33, den: 100})
		c.Assert(MustNewRat(2, 3).Round(2), qt.Equals, Rat{num: 67, den: 100})
		c.Assert(MustNewRat(1, 8).Round(2), qt.Equals, Rat{num: 13, den: 100})
		c.Assert(MustNewRat(-1, 8).Round(2), qt.Equals, Rat{num: -13, den: 100})
		c.Assert(MustNewRat(5, 2).Round(0), qt.Equals, Rat{num: 3, den: 1})
	})

	c.Run("String", func(c *qt.C) {
		c.Assert(MustNewRat(1, 2).String(), qt.Equals, "1/2")
		c.Assert(IntRat(5).String(), qt.Equals, "5")
		c.Assert(Rat{num: 22800, den: 1000}.String(), qt.Equals, "22800/1000")
	})

	c.Run("UnmarshalText", func(c *qt.C) {
		var r Rat
		var _ encoding.TextUnmarshaler = &r
		c.Assert(r.UnmarshalText([]byte("1/2")), qt.IsNil)
		c.Assert(r, qt.Equals, MustNewRat(1, 2))
		c.Assert(r.UnmarshalText([]byte(" 42 ")), qt.IsNil)
		c.Assert(r, qt.Equals, IntRat(42))
		c.Assert(r.UnmarshalText([]byte("12.5")), qt.IsNil)
		c.Assert(r, qt.Equals, MustNewRat(25, 2))
		c.Assert(r.UnmarshalText([]byte("foo")), qt.ErrorMatches, `failed to parse "foo".*`)
		c.Assert(r.UnmarshalText([]byte("1/x")), qt.ErrorMatches, `failed to parse "1/x".*`)

		b, err := MustNewRat(3, 4).MarshalText()
		c.Assert(err, qt.IsNil)
		c.Assert(string(b), qt.Equals, "3/4")
	})
}

func TestRationalize(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		in   float64
		want Rat
	}{
		{0, IntRat(0)},
		{1, IntRat(1)},
		{12.5, MustNewRat(25, 2)},
		{0.75, MustNewRat(3, 4)},
		{-0.75, MustNewRat(-3, 4)},
		{1.0 / 3, MustNewRat(1, 3)},
		{math.Pi, MustNewRat(3126535, 995207)},
		{math.NaN(), IntRat(0)},
	} {
		c.Assert(Rationalize(test.in, DefaultMaxDenominator), qt.Equals, test.want, qt.Commentf("%v", test.in))
	}

	c.Run("Max denominator", func(c *qt.C) {
		c.Assert(Rationalize(math.Pi, 100), qt.Equals, MustNewRat(311, 99))
		c.Assert(Rationalize(math.Pi, 10), qt.Equals, MustNewRat(22, 7))
		c.Assert(Rationalize(0.3, 1), qt.Equals, IntRat(0))
	})

	c.Run("Numerator fits in 32 bits", func(c *qt.C) {
		r := Rationalize(4000000000.5, DefaultMaxDenominator)
		c.Assert(r.Num() <= math.MaxUint32, qt.IsTrue)
		c.Assert(r.Den(), qt.Equals, int64(1))
	})

	c.Run("Precision", func(c *qt.C) {
		for _, f := range []float64{0.1, 25.4, 45.523, 1234.5678, 0.000123} {
			r := Rationalize(f, DefaultMaxDenominator)
			c.Assert(math.Abs(r.Float64()-f) <= 1.0/DefaultMaxDenominator, qt.IsTrue, qt.Commentf("%v -> %s", f, r))
		}
	})
}
