package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func throwNil(ctx context.Context) error {
	var x *int = nil
	*x = 5 //nolint:govet // the nil dereference is the point
	return nil
}

func TestWrapWithScissors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapped := WrapWithScissors(throwNil, "wrappedThread")
	err := wrapped(ctx)
	require.Error(t, err)
	assert.EqualError(t, err, "wrappedThread: runtime error: invalid memory address or nil pointer dereference")

	clean := WrapWithScissors(func(ctx context.Context) error {
		return nil
	}, "cleanThread")
	assert.NoError(t, clean(ctx))
}
