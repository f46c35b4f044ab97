package generic

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NUMBER COERCION - Any stored value to a finite number
// =============================================================================

// Number coerces a stored field value to a finite decimal.
//
// Absent, empty and unparsable values become zero, and so do NaN,
// infinities and anything outside float64's finite range ("1e400",
// "1e-20000000"). Negative numbers pass through unchanged. Thousands
// separators in strings are ignored ("1,250.5" is 1250.5). Number never
// panics.
func Number(v Value) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return fromDecimal(n)
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero
		}
		return fromDecimal(*n)
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return decimal.NewFromInt(int64(n))
	case int8:
		return decimal.NewFromInt(int64(n))
	case int16:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case uint:
		return fromUint(uint64(n))
	case uint8:
		return decimal.NewFromInt(int64(n))
	case uint16:
		return decimal.NewFromInt(int64(n))
	case uint32:
		return decimal.NewFromInt(int64(n))
	case uint64:
		return fromUint(n)
	case bool:
		if n {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	case json.Number:
		return fromString(string(n))
	case string:
		return fromString(n)
	}
	return decimal.Zero
}

// Float is Number converted for writing back into a host field.
func Float(v Value) float64 {
	return Finite(Number(v))
}

// Finite converts d for writing into a host field. Sums or ratios that
// overflow float64 are written as zero.
func Finite(d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Decimal magnitudes (exponent plus coefficient digits) float64 can hold.
const (
	minMagnitude = -323
	maxMagnitude = 309
)

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// fromDecimal bounds d to float64's range before any arithmetic sees its
// exponent.
func fromDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	mag := int64(d.Exponent()) + int64(d.NumDigits())
	if mag < minMagnitude || mag > maxMagnitude {
		return decimal.Zero
	}
	return fromFloat(d.InexactFloat64())
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

// fromString parses s as a float64 so the exponent is bounded before a
// decimal is built. Hex floats are not numbers here.
func fromString(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || strings.ContainsAny(s, "xX") {
		return decimal.Zero
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return decimal.Zero
	}
	return fromFloat(f)
}

// =============================================================================
// ROUNDING
// =============================================================================

// Rounding declares how a displayed value is rounded: half away from zero
// at Places decimal places, i.e. round(x * 10^places) / 10^places.
type Rounding struct {
	Places int32
}

// MaxPlaces is the most decimal places a formula may round to.
const MaxPlaces = 10

func (r *Rounding) valid() bool {
	return r == nil || (r.Places >= 0 && r.Places <= MaxPlaces)
}

// Apply rounds d. A nil Rounding leaves d untouched.
func (r *Rounding) Apply(d decimal.Decimal) decimal.Decimal {
	if r == nil {
		return d
	}
	return d.Round(r.Places)
}

// Places is a convenience constructor for declaring formulas inline.
func Places(n int32) *Rounding {
	return &Rounding{Places: n}
}
