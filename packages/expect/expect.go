// Package expect provides small matchers over JSON documents for use inside
// step work functions. Matchers return an error describing the mismatch, so
// a failing expectation fails the step through the normal error path.
package expect

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Doc wraps a JSON document for matching.
type Doc struct {
	body gjson.Result
	raw  string
}

// JSON parses data into a matchable document.
func JSON(data []byte) (*Doc, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("expect: invalid JSON document")
	}
	return &Doc{body: gjson.ParseBytes(data), raw: string(data)}, nil
}

// JSONString is JSON for string payloads.
func JSONString(data string) (*Doc, error) {
	return JSON([]byte(data))
}

// Exists checks that path resolves to any value.
func (d *Doc) Exists(path string) error {
	if !d.body.Get(path).Exists() {
		return fmt.Errorf("expect: path %q not found", path)
	}
	return nil
}

// Equals checks that the value at path equals want. Numbers compare
// numerically, everything else compares by string form.
func (d *Doc) Equals(path string, want any) error {
	got := d.body.Get(path)
	if !got.Exists() {
		return fmt.Errorf("expect: path %q not found", path)
	}

	switch w := want.(type) {
	case int:
		if got.Num != float64(w) {
			return mismatch(path, w, got.Value())
		}
	case int64:
		if got.Num != float64(w) {
			return mismatch(path, w, got.Value())
		}
	case float64:
		if got.Num != w {
			return mismatch(path, w, got.Value())
		}
	case bool:
		if got.Type != gjson.True && got.Type != gjson.False || got.Bool() != w {
			return mismatch(path, w, got.Value())
		}
	case nil:
		if got.Type != gjson.Null {
			return mismatch(path, nil, got.Value())
		}
	default:
		if got.String() != fmt.Sprintf("%v", want) {
			return mismatch(path, want, got.Value())
		}
	}
	return nil
}

// Contains checks that the string value at path contains substr.
func (d *Doc) Contains(path, substr string) error {
	got := d.body.Get(path)
	if !got.Exists() {
		return fmt.Errorf("expect: path %q not found", path)
	}
	if !strings.Contains(got.String(), substr) {
		return fmt.Errorf("expect: %q = %q does not contain %q", path, got.String(), substr)
	}
	return nil
}

// Length checks the element count of the array or object at path.
func (d *Doc) Length(path string, want int) error {
	got := d.body.Get(path)
	if !got.Exists() {
		return fmt.Errorf("expect: path %q not found", path)
	}
	if !got.IsArray() && !got.IsObject() {
		return fmt.Errorf("expect: %q is not an array or object", path)
	}

	n := 0
	got.ForEach(func(_, _ gjson.Result) bool {
		n++
		return true
	})
	if n != want {
		return fmt.Errorf("expect: %q has length %d, want %d", path, n, want)
	}
	return nil
}

// Value returns the raw value at path, nil when absent.
func (d *Doc) Value(path string) any {
	return d.body.Get(path).Value()
}

func mismatch(path string, want, got any) error {
	return fmt.Errorf("expect: %q = %v, want %v", path, got, want)
}
