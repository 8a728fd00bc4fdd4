// Package coerce decodes stored records defensively: numeric fields default to
// 0 and string fields default to "" instead of failing the whole record.
package coerce

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a monetary or count field decoded leniently from stored records.
// Numeric strings are parsed; anything else decodes to zero.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number(CoerceNumber(b))
	return nil
}

func (n Number) Float() float64 { return float64(n) }

func (n Number) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(n))
}

// CoerceNumber decodes a raw JSON value into a finite float, defaulting to 0.
func CoerceNumber(raw []byte) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return finite(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return finite(parsed)
	default:
		return 0
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Text is a string field that decodes any non-string value to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text(CoerceText(b))
	return nil
}

func (t Text) String() string { return string(t) }

// CoerceText decodes a raw JSON string, defaulting to "".
func CoerceText(raw []byte) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// ID decodes a record identifier stored as either a string or a number.
func ID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	if s := CoerceText(raw); s != "" {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}
