// Package types contains value types shared across layers and their wire encoding.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// NotAvailable is the wire form of a missing difficulty.
const NotAvailable = "N/A"

// ErrInvalidDifficulty reports a difficulty that is negative or not finite.
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// Difficulty is a non-negative value rounded to two decimals, or "N/A".
// The zero value is "N/A", so an unset difficulty never reads as 0.
type Difficulty struct {
	value float64
	ok    bool
}

// NA returns the "not available" difficulty.
func NA() Difficulty { return Difficulty{} }

// Of returns v rounded to two decimals. Negative or non-finite input
// yields ErrInvalidDifficulty.
func Of(v float64) (Difficulty, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Difficulty{}, ErrInvalidDifficulty
	}
	return Difficulty{value: Round2(v), ok: true}, nil
}

// MustOf is Of for literals known to be valid.
func MustOf(v float64) Difficulty {
	d, err := Of(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsNA reports whether d is the sentinel.
func (d Difficulty) IsNA() bool { return !d.ok }

// Value returns the numeric value and whether it is available.
func (d Difficulty) Value() (float64, bool) { return d.value, d.ok }

// Add shifts d by delta and re-rounds. The sentinel is returned unchanged
// and results below zero are floored at zero.
func (d Difficulty) Add(delta float64) Difficulty {
	if !d.ok {
		return d
	}
	v := Round2(d.value + delta)
	if v < 0 {
		v = 0
	}
	return Difficulty{value: v, ok: true}
}

// String renders "0.50" or "N/A".
func (d Difficulty) String() string {
	if !d.ok {
		return NotAvailable
	}
	return strconv.FormatFloat(d.value, 'f', 2, 64)
}

// MarshalJSON encodes a number, or the string "N/A".
func (d Difficulty) MarshalJSON() ([]byte, error) {
	if !d.ok {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(d.value)
}

// UnmarshalJSON accepts a number, "N/A" or null.
func (d *Difficulty) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = NA()
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != NotAvailable {
			return ErrInvalidDifficulty
		}
		*d = NA()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := Of(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
