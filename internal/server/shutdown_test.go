package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownHooks_Add(t *testing.T) {
	t.Run("adds hooks in order", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		hooks.AddContext("first", func(ctx context.Context) error { return nil })
		hooks.Add("second", func() error { return nil })

		require.Len(t, hooks.hooks, 2)
		assert.Equal(t, "first", hooks.hooks[0].name)
		assert.Equal(t, "second", hooks.hooks[1].name)
	})

	t.Run("ignores nil hooks", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		hooks.AddContext("nil-context", nil)
		hooks.Add("nil-simple", nil)
		hooks.AddClose("nil-closer", nil)
		assert.Empty(t, hooks.hooks)
	})

	t.Run("wrapped hook returns the original error", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		expectedErr := errors.New("test error")

		hooks.Add("error-hook", func() error { return expectedErr })

		require.Len(t, hooks.hooks, 1)
		assert.Equal(t, expectedErr, hooks.hooks[0].fn(context.Background()))
	})

	t.Run("closer errors are discarded", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		closeCalled := false
		hooks.AddClose("closer", &mockCloser{closeFn: func() { closeCalled = true }})

		require.Len(t, hooks.hooks, 1)
		assert.NoError(t, hooks.hooks[0].fn(context.Background()))
		assert.True(t, closeCalled)
	})
}

func TestShutdownHooks_Execute(t *testing.T) {
	t.Run("executes hooks in order", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		var order []string

		hooks.AddContext("context", func(ctx context.Context) error {
			order = append(order, "context")
			return nil
		})
		hooks.Add("simple", func() error {
			order = append(order, "simple")
			return nil
		})
		hooks.AddClose("closer", &mockCloser{closeFn: func() {
			order = append(order, "closer")
		}})

		hooks.Execute(context.Background())

		assert.Equal(t, []string{"context", "simple", "closer"}, order)
	})

	t.Run("continues execution when hooks fail", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		var executed []string

		hooks.Add("error1", func() error {
			executed = append(executed, "error1")
			return errors.New("first error")
		})
		hooks.AddContext("success", func(ctx context.Context) error {
			executed = append(executed, "success")
			return nil
		})
		hooks.Add("error2", func() error {
			executed = append(executed, "error2")
			return errors.New("second error")
		})

		hooks.Execute(context.Background())

		assert.Equal(t, []string{"error1", "success", "error2"}, executed,
			"execution should continue through multiple errors")
	})

	t.Run("passes context to hooks", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		type ctxKey struct{}

		var receivedValue string
		hooks.AddContext("ctx-check", func(ctx context.Context) error {
			receivedValue = ctx.Value(ctxKey{}).(string)
			return nil
		})

		hooks.Execute(context.WithValue(context.Background(), ctxKey{}, "test-value"))

		assert.Equal(t, "test-value", receivedValue)
	})

	t.Run("handles an empty hook list", func(t *testing.T) {
		hooks := &ShutdownHooks{}
		hooks.Execute(context.Background())
	})
}

type mockCloser struct {
	closeFn func()
}

func (m *mockCloser) Close() {
	if m.closeFn != nil {
		m.closeFn()
	}
}
