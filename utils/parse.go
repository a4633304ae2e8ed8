package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates. It
// returns nil when s matches none of them.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FlexFloat decodes a JSON number or a numeric string. Missing, null and
// empty values leave Set false; anything non-numeric, NaN or infinite sets
// Invalid.
type FlexFloat struct {
	Value   float64
	Set     bool
	Invalid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			f.Invalid = true
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		f.Invalid = true
		return nil
	}
	f.Value, f.Set = v, true
	return nil
}

// ErrNotText is returned for JSON objects, arrays and booleans where a
// string or number was expected.
var ErrNotText = errors.New("expected a string or a number")

// FlexString decodes a JSON string or number into its text form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrNotText
	}
	*s = FlexString(n.String())
	return nil
}

// Positive reports whether v is a finite number above zero. NaN is not.
func Positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
