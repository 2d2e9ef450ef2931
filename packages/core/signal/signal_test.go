package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAny_NoParents(t *testing.T) {
	ctx, cancel := Any()
	defer cancel(nil)

	select {
	case <-ctx.Done():
		t.Fatal("context with no parents should not fire on its own")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestAny_ParentAlreadyCancelled(t *testing.T) {
	cause := errors.New("already gone")
	parent, pcancel := context.WithCancelCause(context.Background())
	pcancel(cause)

	ctx, cancel := Any(parent)
	defer cancel(nil)

	require.Error(t, ctx.Err())
	assert.Equal(t, cause, context.Cause(ctx))
}

func TestAny_FirstParentWins(t *testing.T) {
	a, acancel := context.WithCancelCause(context.Background())
	b, bcancel := context.WithCancelCause(context.Background())
	defer bcancel(nil)

	ctx, cancel := Any(a, b)
	defer cancel(nil)

	cause := errors.New("a fired")
	acancel(cause)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context did not fire")
	}
	assert.Equal(t, cause, context.Cause(ctx))

	// A later parent cancellation must not overwrite the cause.
	bcancel(errors.New("b fired"))
	assert.Equal(t, cause, context.Cause(ctx))
}

func TestAny_NilParentsIgnored(t *testing.T) {
	parent, pcancel := context.WithCancelCause(context.Background())
	defer pcancel(nil)

	ctx, cancel := Any(nil, parent, nil)
	defer cancel(nil)

	assert.NoError(t, ctx.Err())
}

func TestAny_CancelActsAsController(t *testing.T) {
	parent, pcancel := context.WithCancelCause(context.Background())
	defer pcancel(nil)

	ctx, cancel := Any(parent)
	cause := errors.New("abort")
	cancel(cause)

	require.Error(t, ctx.Err())
	assert.Equal(t, cause, context.Cause(ctx))
}
