package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/clients/kv"
	"github.com/abdul-hamid-achik/runspec/packages/clients/queue"
	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/abdul-hamid-achik/runspec/packages/expect"
)

// ActionFunc binds a step's arguments into a runnable step function. Binding
// happens at load time, so argument errors surface before the run starts.
type ActionFunc func(args map[string]any) (engine.StepFunc, error)

// Registry maps action names to their builders.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
}

// NewRegistry creates a registry preloaded with the builtin actions.
func NewRegistry() *Registry {
	r := &Registry{actions: make(map[string]ActionFunc)}
	r.registerBuiltins()
	return r
}

// Register adds or replaces an action.
func (r *Registry) Register(name string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

func (r *Registry) build(name string, args map[string]any) (engine.StepFunc, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	return fn(args)
}

// Argument helpers. Suite files are schema-validated before binding, so
// these only deal with values the schema cannot pin down.

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return fallback
}

func requireStringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return fmt.Sprintf("%v", v), nil
}

func intArg(args map[string]any, key string, fallback int) (int, error) {
	v, ok := args[key]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", key, v)
	}
}

func durationArg(args map[string]any, key string, fallback time.Duration) (time.Duration, error) {
	v, ok := args[key]
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(fmt.Sprintf("%v", v))
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w", key, err)
	}
	return d, nil
}

// resourceArg looks up a previously opened resource by the name of the step
// that opened it.
func resourceArg[T any](sc *engine.StepContext, name string) (T, error) {
	var zero T
	v, ok := sc.Resource(name)
	if !ok {
		return zero, fmt.Errorf("no resource named %q (did a resource step open it?)", name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resource %q is %T, not %T", name, v, zero)
	}
	return typed, nil
}

func (r *Registry) registerBuiltins() {
	r.actions["kv.open"] = kvOpen
	r.actions["kv.put"] = kvPut
	r.actions["kv.get"] = kvGet
	r.actions["kv.delete"] = kvDelete
	r.actions["kv.keys"] = kvKeys
	r.actions["queue.open"] = queueOpen
	r.actions["queue.publish"] = queuePublish
	r.actions["queue.consume"] = queueConsume
	r.actions["shell"] = shellAction
	r.actions["wait"] = waitAction
	r.actions["expect.json"] = expectJSON
}

func kvOpen(args map[string]any) (engine.StepFunc, error) {
	path := stringArg(args, "path", ":memory:")
	queryTimeout, err := durationArg(args, "queryTimeout", 0)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		var opts []kv.Option
		if queryTimeout > 0 {
			opts = append(opts, kv.WithQueryTimeout(queryTimeout))
		}
		return kv.Open(path, opts...)
	}, nil
}

func kvPut(args map[string]any) (engine.StepFunc, error) {
	store := stringArg(args, "store", "db")
	key, err := requireStringArg(args, "key")
	if err != nil {
		return nil, err
	}
	value, err := requireStringArg(args, "value")
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		s, err := resourceArg[*kv.Store](sc, store)
		if err != nil {
			return nil, err
		}
		return nil, s.Put(ctx, key, value)
	}, nil
}

func kvGet(args map[string]any) (engine.StepFunc, error) {
	store := stringArg(args, "store", "db")
	key, err := requireStringArg(args, "key")
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		s, err := resourceArg[*kv.Store](sc, store)
		if err != nil {
			return nil, err
		}
		return s.Get(ctx, key)
	}, nil
}

func kvDelete(args map[string]any) (engine.StepFunc, error) {
	store := stringArg(args, "store", "db")
	key, err := requireStringArg(args, "key")
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		s, err := resourceArg[*kv.Store](sc, store)
		if err != nil {
			return nil, err
		}
		return nil, s.Delete(ctx, key)
	}, nil
}

func kvKeys(args map[string]any) (engine.StepFunc, error) {
	store := stringArg(args, "store", "db")

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		s, err := resourceArg[*kv.Store](sc, store)
		if err != nil {
			return nil, err
		}
		return s.Keys(ctx)
	}, nil
}

func queueOpen(args map[string]any) (engine.StepFunc, error) {
	capacity, err := intArg(args, "capacity", 16)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		return queue.New(capacity), nil
	}, nil
}

func queuePublish(args map[string]any) (engine.StepFunc, error) {
	name := stringArg(args, "queue", "queue")
	body, err := requireStringArg(args, "body")
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		q, err := resourceArg[*queue.Queue](sc, name)
		if err != nil {
			return nil, err
		}
		msg, err := q.Publish(ctx, []byte(body))
		if err != nil {
			return nil, err
		}
		return msg.ID, nil
	}, nil
}

func queueConsume(args map[string]any) (engine.StepFunc, error) {
	name := stringArg(args, "queue", "queue")

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		q, err := resourceArg[*queue.Queue](sc, name)
		if err != nil {
			return nil, err
		}
		msg, err := q.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return string(msg.Body), nil
	}, nil
}

func shellAction(args map[string]any) (engine.StepFunc, error) {
	command, err := requireStringArg(args, "command")
	if err != nil {
		return nil, err
	}
	dir := stringArg(args, "dir", "")

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		cmdStr := strings.TrimSpace(command)
		if cmdStr == "" {
			return "", nil
		}

		// A leading "-" runs the command but ignores its failure.
		ignoreError := strings.HasPrefix(cmdStr, "-")
		if ignoreError {
			cmdStr = strings.TrimSpace(strings.TrimPrefix(cmdStr, "-"))
		}

		execCmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
		execCmd.Dir = dir
		execCmd.Env = os.Environ()

		output, err := execCmd.CombinedOutput()
		if err != nil && !ignoreError {
			return nil, fmt.Errorf("shell command failed: %s: %v\nOutput: %s", cmdStr, err, output)
		}
		return strings.TrimSpace(string(output)), nil
	}, nil
}

func waitAction(args map[string]any) (engine.StepFunc, error) {
	d, err := durationArg(args, "duration", 0)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("wait requires a positive duration")
	}

	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}, nil
}

// expectJSON asserts over the previous step's value interpreted as JSON.
func expectJSON(args map[string]any) (engine.StepFunc, error) {
	return func(ctx context.Context, sc *engine.StepContext) (any, error) {
		doc, err := docFromValue(sc.Prev)
		if err != nil {
			return nil, err
		}

		if paths, ok := args["exists"].([]any); ok {
			for _, p := range paths {
				if err := doc.Exists(fmt.Sprintf("%v", p)); err != nil {
					return nil, err
				}
			}
		}
		if checks, ok := args["equals"].(map[string]any); ok {
			for path, want := range checks {
				if err := doc.Equals(path, want); err != nil {
					return nil, err
				}
			}
		}
		if checks, ok := args["contains"].(map[string]any); ok {
			for path, want := range checks {
				if err := doc.Contains(path, fmt.Sprintf("%v", want)); err != nil {
					return nil, err
				}
			}
		}
		if checks, ok := args["length"].(map[string]any); ok {
			for path, want := range checks {
				n, ok := want.(int)
				if !ok {
					return nil, fmt.Errorf("length for %q must be an integer, got %T", path, want)
				}
				if err := doc.Length(path, n); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	}, nil
}

func docFromValue(v any) (*expect.Doc, error) {
	switch s := v.(type) {
	case nil:
		return nil, fmt.Errorf("expect.json: no previous step value")
	case string:
		return expect.JSONString(s)
	case []byte:
		return expect.JSON(s)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("expect.json: previous value is not JSON-encodable: %w", err)
		}
		return expect.JSON(b)
	}
}
