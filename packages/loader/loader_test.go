package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSuite(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const kvSuite = `
suite: kv-smoke
vars:
  SKU: sku-1
scenarios:
  - name: put and read back
    tags: [smoke, kv]
    timeout: 10s
    steps:
      - name: db
        kind: resource
        action: kv.open
        with:
          path: ":memory:"
      - name: seed
        kind: setup
        action: kv.put
        with:
          store: db
          key: "{{SKU}}"
          value: widget
      - name: read
        action: kv.get
        with:
          store: db
          key: "{{SKU}}"
        timeout: 2s
        retry:
          maxAttempts: 3
          backoff: exponential
          baseDelay: 10ms
`

func TestLoadFile(t *testing.T) {
	path := writeSuite(t, "kv.runspec.yaml", kvSuite)

	defs, err := New().LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "put and read back", def.Name)
	assert.Equal(t, []string{"smoke", "kv"}, def.Tags)
	assert.Equal(t, 10*time.Second, def.Timeout)
	require.Len(t, def.Steps, 3)

	assert.Equal(t, engine.KindResource, def.Steps[0].Kind)
	assert.Equal(t, engine.KindSetup, def.Steps[1].Kind)
	assert.Equal(t, engine.KindStep, def.Steps[2].Kind)
	assert.Equal(t, 2*time.Second, def.Steps[2].Timeout)
	require.NotNil(t, def.Steps[2].Retry)
	assert.Equal(t, 3, def.Steps[2].Retry.MaxAttempts)
}

func TestLoadFile_RunsEndToEnd(t *testing.T) {
	path := writeSuite(t, "kv.runspec.yaml", kvSuite)

	defs, err := New().LoadFile(path)
	require.NoError(t, err)

	result := engine.NewRunner(nil).Run(context.Background(), defs)
	require.True(t, result.Ok(), "run failed: %+v", result.Scenarios[0].Err)

	sc := result.Scenarios[0]
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, "widget", sc.Steps[2].Value)
}

func TestLoadFile_QueueAndExpect(t *testing.T) {
	path := writeSuite(t, "q.runspec.yaml", `
suite: queue-smoke
scenarios:
  - name: publish and verify
    steps:
      - name: q
        kind: resource
        action: queue.open
        with:
          capacity: 4
      - name: publish
        action: queue.publish
        with:
          queue: q
          body: '{"status": "ok", "count": 3}'
      - name: consume
        action: queue.consume
        with:
          queue: q
      - name: verify
        action: expect.json
        with:
          exists: [status]
          equals:
            status: ok
            count: 3
`)

	defs, err := New().LoadFile(path)
	require.NoError(t, err)

	result := engine.NewRunner(nil).Run(context.Background(), defs)
	assert.True(t, result.Ok(), "run failed: %+v", result.Scenarios[0].Err)
}

func TestLoadFile_EnvInterpolation(t *testing.T) {
	t.Setenv("RUNSPEC_TEST_KEY", "from-env")
	path := writeSuite(t, "env.runspec.yaml", `
scenarios:
  - name: env
    steps:
      - name: db
        kind: resource
        action: kv.open
      - name: seed
        kind: setup
        action: kv.put
        with:
          store: db
          key: "{{$RUNSPEC_TEST_KEY}}"
          value: v
      - name: read
        action: kv.get
        with:
          store: db
          key: from-env
`)

	defs, err := New().LoadFile(path)
	require.NoError(t, err)

	result := engine.NewRunner(nil).Run(context.Background(), defs)
	assert.True(t, result.Ok())
}

func TestLoadFile_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no scenarios", `suite: empty`},
		{"scenario without steps", "scenarios:\n  - name: x\n    steps: []"},
		{"step without action", "scenarios:\n  - name: x\n    steps:\n      - name: s"},
		{"bad kind", "scenarios:\n  - name: x\n    steps:\n      - name: s\n        kind: teardown\n        action: wait"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSuite(t, "bad.runspec.yaml", tt.content)
			_, err := New().LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_UnknownAction(t *testing.T) {
	path := writeSuite(t, "bad.runspec.yaml", `
scenarios:
  - name: x
    steps:
      - name: s
        action: http.get
`)
	_, err := New().LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestLoadFile_DuplicateNames(t *testing.T) {
	path := writeSuite(t, "dup.runspec.yaml", `
scenarios:
  - name: x
    steps:
      - name: s
        action: wait
        with: {duration: 1ms}
  - name: x
    steps:
      - name: s
        action: wait
        with: {duration: 1ms}
`)
	_, err := New().LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scenario name")
}

func TestLoadFile_CustomAction(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.Register("noop", func(args map[string]any) (engine.StepFunc, error) {
		return func(ctx context.Context, sc *engine.StepContext) (any, error) {
			called = true
			return nil, nil
		}, nil
	})

	path := writeSuite(t, "custom.runspec.yaml", `
scenarios:
  - name: custom
    steps:
      - name: s
        action: noop
`)

	defs, err := New(WithRegistry(reg)).LoadFile(path)
	require.NoError(t, err)

	result := engine.NewRunner(nil).Run(context.Background(), defs)
	assert.True(t, result.Ok())
	assert.True(t, called)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0755))

	for _, name := range []string{"a.runspec.yaml", "nested/b.runspec.yml", "ignore.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	files, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "a.runspec.yaml")
	assert.Contains(t, files[1], "b.runspec.yml")
}

func TestResolver(t *testing.T) {
	r := newResolver(map[string]string{"host": "localhost", "port": "8080"})

	assert.Equal(t, "localhost:8080", r.resolve("{{host}}:{{port}}"))
	assert.Equal(t, "{{missing}}", r.resolve("{{missing}}"), "unresolved refs stay verbatim")

	args := r.resolveArgs(map[string]any{
		"url":  "http://{{host}}",
		"list": []any{"{{port}}", 1},
		"deep": map[string]any{"k": "{{host}}"},
	})
	assert.Equal(t, "http://localhost", args["url"])
	assert.Equal(t, []any{"8080", 1}, args["list"])
	assert.Equal(t, map[string]any{"k": "localhost"}, args["deep"])
}
