package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coordinate is one slot position component. JSON accepts either a number or a string.
type Coordinate string

// UnmarshalJSON accepts 2, 2.0, "2" and "02" alike. Normalization happens at key derivation.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Coordinate(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return NewValidationError("", "slot coordinate must be a string or a number")
	}
	*c = Coordinate(integralNumber(n))
	return nil
}

// maxExactFloat is the largest magnitude below which every integer is representable as float64.
const maxExactFloat = 1 << 53

// integralNumber spells integral numbers like 2.0 or 2e0 as plain integers.
// Fractions and values too large to be exact keep their JSON spelling.
func integralNumber(n json.Number) string {
	if _, err := n.Int64(); err == nil {
		return n.String()
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= maxExactFloat {
		return n.String()
	}
	return strconv.FormatInt(int64(f), 10)
}

// SlotAddress is the physical part of a location key.
type SlotAddress struct {
	Warehouse string `json:"warehouse" bson:"warehouse"`
	Row       string `json:"row" bson:"row"`
	Column    string `json:"column" bson:"column"`
	Floor     string `json:"floor" bson:"floor"`
}

// NewSlotAddress builds a normalized address from raw coordinates.
func NewSlotAddress(warehouse string, row, column, floor Coordinate) SlotAddress {
	return SlotAddress{
		Warehouse: string(warehouse),
		Row:       string(row),
		Column:    string(column),
		Floor:     string(floor),
	}.Normalize()
}

// Normalize returns the canonical form of every component.
func (a SlotAddress) Normalize() SlotAddress {
	return SlotAddress{
		Warehouse: NormalizeComponent(a.Warehouse),
		Row:       NormalizeComponent(a.Row),
		Column:    NormalizeComponent(a.Column),
		Floor:     NormalizeComponent(a.Floor),
	}
}

// Validate requires every component to be non-empty after normalization.
func (a SlotAddress) Validate() error {
	n := a.Normalize()
	switch {
	case n.Warehouse == "":
		return NewValidationError("warehouse", "is required")
	case n.Row == "":
		return NewValidationError("row", "is required")
	case n.Column == "":
		return NewValidationError("column", "is required")
	case n.Floor == "":
		return NewValidationError("floor", "is required")
	}
	return nil
}

// Equal compares two addresses after normalization.
func (a SlotAddress) Equal(b SlotAddress) bool {
	return a.Normalize() == b.Normalize()
}

// NormalizeComponent trims, collapses inner whitespace and rewrites integers
// to canonical decimal so "02", " 2" and "+2" all become "2".
func NormalizeComponent(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if canonical, ok := canonicalInteger(s); ok {
		return canonical
	}
	return s
}

func canonicalInteger(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	sign := ""
	digits := s
	switch s[0] {
	case '+':
		digits = s[1:]
	case '-':
		sign = "-"
		digits = s[1:]
	}
	if digits == "" {
		return "", false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false
		}
	}
	// Leading zeros are stripped textually so labels longer than int64 stay exact.
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0", true
	}
	return sign + digits, true
}

var keyEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

const keySeparator = "_"

// LocationKey derives the deterministic slot id for an item at an address.
// Components are escaped so that no two distinct five-tuples share a key.
func LocationKey(addr SlotAddress, itemID string) string {
	n := addr.Normalize()
	parts := []string{n.Warehouse, n.Row, n.Column, n.Floor, strings.TrimSpace(itemID)}
	for i, p := range parts {
		parts[i] = keyEscaper.Replace(p)
	}
	return strings.Join(parts, keySeparator)
}
