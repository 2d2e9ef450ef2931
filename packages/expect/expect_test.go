package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"status": "ok",
	"count": 3,
	"ready": true,
	"missing_value": null,
	"items": [1, 2, 3],
	"user": {"name": "ada", "email": "ada@example.com"}
}`

func mustDoc(t *testing.T) *Doc {
	t.Helper()
	d, err := JSONString(sample)
	require.NoError(t, err)
	return d
}

func TestJSON_Invalid(t *testing.T) {
	_, err := JSONString("{not json")
	assert.Error(t, err)
}

func TestDoc_Exists(t *testing.T) {
	d := mustDoc(t)

	assert.NoError(t, d.Exists("user.name"))
	assert.Error(t, d.Exists("user.phone"))
}

func TestDoc_Equals(t *testing.T) {
	d := mustDoc(t)

	tests := []struct {
		name    string
		path    string
		want    any
		wantErr bool
	}{
		{"string match", "status", "ok", false},
		{"string mismatch", "status", "down", true},
		{"int match", "count", 3, false},
		{"int mismatch", "count", 4, true},
		{"float match", "count", 3.0, false},
		{"bool match", "ready", true, false},
		{"bool mismatch", "ready", false, true},
		{"null match", "missing_value", nil, false},
		{"nested path", "user.name", "ada", false},
		{"absent path", "user.phone", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Equals(tt.path, tt.want)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDoc_Contains(t *testing.T) {
	d := mustDoc(t)

	assert.NoError(t, d.Contains("user.email", "@example.com"))
	assert.Error(t, d.Contains("user.email", "@other.org"))
	assert.Error(t, d.Contains("nope", "x"))
}

func TestDoc_Length(t *testing.T) {
	d := mustDoc(t)

	assert.NoError(t, d.Length("items", 3))
	assert.Error(t, d.Length("items", 2))
	assert.NoError(t, d.Length("user", 2))
	assert.Error(t, d.Length("status", 1), "scalar has no length")
}

func TestDoc_Value(t *testing.T) {
	d := mustDoc(t)

	assert.Equal(t, "ada", d.Value("user.name"))
	assert.Nil(t, d.Value("user.phone"))
}
