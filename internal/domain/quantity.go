package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity is a numeric field from upstream data. Decoding never fails: null,
// empty, non-numeric and non-finite values all become 0.
type Quantity float64

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = 0

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(data)
	}

	*q = Quantity(ParseQuantity(raw))
	return nil
}

// Float returns the value as float64.
func (q Quantity) Float() float64 {
	return float64(q)
}

// ParseQuantity converts loosely formatted numbers, calling anything
// unparsable zero. Both en-US ("1,234.5") and pt-BR ("1.234,5", "1,5")
// separators are read. When only one kind of separator appears, groups of
// exactly three digits after it are thousands ("1,250" is 1250, "1.250.000"
// is 1250000); a lone comma otherwise marks the decimals.
func ParseQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	f, err := strconv.ParseFloat(normalizeSeparators(raw), 64)
	if err != nil {
		return 0
	}
	return Finite(f)
}

func normalizeSeparators(raw string) string {
	dot, comma := strings.LastIndex(raw, "."), strings.LastIndex(raw, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// The separator that comes last holds the decimals.
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(raw, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(raw, ",", "")
	case comma >= 0:
		if thousandsGrouped(raw, ",") {
			return strings.ReplaceAll(raw, ",", "")
		}
		return strings.Replace(raw, ",", ".", 1)
	case strings.Count(raw, ".") > 1 && thousandsGrouped(raw, "."):
		return strings.ReplaceAll(raw, ".", "")
	}
	return raw
}

func thousandsGrouped(raw, sep string) bool {
	parts := strings.Split(raw, sep)
	if parts[0] == "" || parts[0] == "-" || parts[0] == "+" {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 || strings.Trim(p, "0123456789") != "" {
			return false
		}
	}
	return true
}

// Finite maps NaN and infinities to 0.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
