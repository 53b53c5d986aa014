package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotScalar is returned when a list argument holds more than one element.
var ErrNotScalar = errors.New("expected a single value")

// DecodeArgs decodes a tool argument map into dst, a pointer to a struct
// with json tags. Use the Flex types for fields the model tends to send in
// the wrong shape.
func DecodeArgs(args map[string]interface{}, dst interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// unwrapScalar strips a single-element JSON list and surrounding string
// quotes. A JSON null comes back as ok=false.
func unwrapScalar(data []byte) (tok string, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return "", false, err
		}
		if len(items) != 1 {
			return "", false, fmt.Errorf("%w, got list of %d", ErrNotScalar, len(items))
		}
		return unwrapScalar(items[0])
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	}
	if string(data) == "null" {
		return "", false, nil
	}
	return string(data), true, nil
}

// numericToken unwraps data and trims it for number or bool parsing.
func numericToken(data []byte) (string, bool, error) {
	tok, ok, err := unwrapScalar(data)
	tok = strings.TrimSpace(tok)
	return tok, ok && tok != "", err
}

// FlexInt accepts 540, 540.7, "540", "540.0" and [540]. Fractions are
// truncated toward zero. Values outside the int32 range are rejected.
type FlexInt struct {
	Value int
	Set   bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	tok, ok, err := numericToken(data)
	if err != nil {
		return err
	}
	if !ok {
		*f = FlexInt{}
		return nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%q is not a number", tok)
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return fmt.Errorf("%q is out of range", tok)
	}
	*f = FlexInt{Value: int(v), Set: true}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// Or returns the value, or def when the argument was absent.
func (f FlexInt) Or(def int) int {
	if !f.Set {
		return def
	}
	return f.Value
}

// FlexFloat accepts the same shapes as FlexInt without truncation.
type FlexFloat struct {
	Value float64
	Set   bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	tok, ok, err := numericToken(data)
	if err != nil {
		return err
	}
	if !ok {
		*f = FlexFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%q is not a number", tok)
	}
	*f = FlexFloat{Value: v, Set: true}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
}

// Or returns the value, or def when the argument was absent.
func (f FlexFloat) Or(def float64) float64 {
	if !f.Set {
		return def
	}
	return f.Value
}

// FlexBool accepts true, "true", "1", 1 and [true].
type FlexBool struct {
	Value bool
	Set   bool
}

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	tok, ok, err := numericToken(data)
	if err != nil {
		return err
	}
	if !ok {
		*f = FlexBool{}
		return nil
	}
	v, err := strconv.ParseBool(strings.ToLower(tok))
	if err != nil {
		return fmt.Errorf("%q is not a boolean", tok)
	}
	*f = FlexBool{Value: v, Set: true}
	return nil
}

func (f FlexBool) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatBool(f.Value)), nil
}

// Or returns the value, or def when the argument was absent.
func (f FlexBool) Or(def bool) bool {
	if !f.Set {
		return def
	}
	return f.Value
}

// FlexString accepts strings, numbers and single-element lists, so a
// device id sent as 123 still decodes.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	tok, _, err := unwrapScalar(data)
	if err != nil {
		return err
	}
	*f = FlexString(tok)
	return nil
}

func (f FlexString) String() string { return string(f) }
