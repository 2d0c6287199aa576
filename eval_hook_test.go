package flagdecide

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagdecide/go-server-sdk/api"
)

func TestEvalHookRunner(t *testing.T) {
	t.Run("RunBeforeHooks - success", func(t *testing.T) {
		hook1 := NewEvalHook(
			func(context *HookContext) error { return nil },
			nil, nil, nil,
		)
		hook2 := NewEvalHook(
			func(context *HookContext) error { return nil },
			nil, nil, nil,
		)

		runner := NewEvalHookRunner([]*EvalHook{hook1, hook2})
		context := &HookContext{FlagKey: "test-key"}

		err := runner.RunBeforeHooks(runner.Hooks(), context)
		assert.NoError(t, err)
	})

	t.Run("RunBeforeHooks - error", func(t *testing.T) {
		expectedError := errors.New("before hook error")
		hook := NewEvalHook(
			func(context *HookContext) error { return expectedError },
			nil, nil, nil,
		)

		runner := NewEvalHookRunner([]*EvalHook{hook})
		context := &HookContext{FlagKey: "test-key"}

		err := runner.RunBeforeHooks(runner.Hooks(), context)
		require.Error(t, err)

		var beforeHookError *BeforeHookError
		require.ErrorAs(t, err, &beforeHookError)
		assert.Equal(t, 0, beforeHookError.HookIndex)
		assert.ErrorIs(t, err, expectedError)
	})

	t.Run("RunAfterHooks - error", func(t *testing.T) {
		expectedError := errors.New("after hook error")
		hook := NewEvalHook(
			nil,
			func(context *HookContext, decision *api.Decision) error { return expectedError },
			nil, nil,
		)

		runner := NewEvalHookRunner([]*EvalHook{hook})
		context := &HookContext{FlagKey: "test-key"}

		err := runner.RunAfterHooks(runner.Hooks(), context, api.Decision{FlagKey: "test-key", VariationKey: "on"})
		require.Error(t, err)

		var afterHookError *AfterHookError
		require.ErrorAs(t, err, &afterHookError)
		assert.Equal(t, 0, afterHookError.HookIndex)
		assert.Equal(t, expectedError, afterHookError.Err)
	})

	t.Run("nil context is a no-op", func(t *testing.T) {
		hook := NewEvalHook(
			func(context *HookContext) error { return errors.New("unreachable") },
			nil, nil, nil,
		)
		runner := NewEvalHookRunner([]*EvalHook{hook})
		assert.NoError(t, runner.RunBeforeHooks(runner.Hooks(), nil))
	})

	t.Run("Hook execution order", func(t *testing.T) {
		executionOrder := []int{}

		hook1 := NewEvalHook(
			func(context *HookContext) error {
				executionOrder = append(executionOrder, 1)
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				executionOrder = append(executionOrder, 4)
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				executionOrder = append(executionOrder, 6)
				return nil
			},
			nil,
		)

		hook2 := NewEvalHook(
			func(context *HookContext) error {
				executionOrder = append(executionOrder, 2)
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				executionOrder = append(executionOrder, 3)
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				executionOrder = append(executionOrder, 5)
				return nil
			},
			nil,
		)

		runner := NewEvalHookRunner([]*EvalHook{hook1, hook2})
		context := &HookContext{FlagKey: "test-key"}

		assert.NoError(t, runner.RunBeforeHooks(runner.Hooks(), context))
		assert.NoError(t, runner.RunAfterHooks(runner.Hooks(), context, api.Decision{}))
		runner.RunOnFinallyHooks(runner.Hooks(), context, api.Decision{})

		// before hooks run in order, after/onFinally hooks in reverse order
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, executionOrder)
	})

	t.Run("AddHook and ClearHooks", func(t *testing.T) {
		runner := NewEvalHookRunner(nil)
		runner.AddHook(NewEvalHook(nil, nil, nil, nil))
		runner.AddHook(NewEvalHook(nil, nil, nil, nil))
		snapshot := runner.Hooks()
		assert.Len(t, snapshot, 2)

		runner.ClearHooks()
		assert.Empty(t, runner.Hooks())
		assert.Len(t, snapshot, 2)
	})
}

func TestClientWithHooks(t *testing.T) {
	t.Run("successful decision", func(t *testing.T) {
		var calls []string
		hook := NewEvalHook(
			func(context *HookContext) error {
				calls = append(calls, "before")
				assert.Equal(t, "buy_button", context.FlagKey)
				assert.Equal(t, "user42", context.User.UserId)
				assert.Equal(t, "73", context.Revision)
				assert.True(t, context.Options.IncludeReasons)
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				calls = append(calls, "after")
				assert.Equal(t, "buy_button", decision.FlagKey)
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				calls = append(calls, "finally")
				assert.Equal(t, "buy_button", decision.FlagKey)
				return nil
			},
			func(context *HookContext, evalError error) error {
				calls = append(calls, "error")
				return nil
			},
		)
		c := newTestClient(t, &Options{
			EvalHooks:            []*EvalHook{hook},
			DefaultDecideOptions: api.DecideOptions{IncludeReasons: true},
		})

		_, err := c.Decide(test_user, "buy_button", api.DecideOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"before", "after", "finally"}, calls)
	})

	t.Run("before hook error", func(t *testing.T) {
		beforeHookError := errors.New("before hook failed")
		var calls []string
		var reported error
		hook := NewEvalHook(
			func(context *HookContext) error { return beforeHookError },
			func(context *HookContext, decision *api.Decision) error {
				t.Error("After hook should not be called when before hook fails")
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				calls = append(calls, "finally")
				return nil
			},
			func(context *HookContext, evalError error) error {
				calls = append(calls, "error")
				reported = evalError
				return nil
			},
		)
		c := newTestClient(t, &Options{EvalHooks: []*EvalHook{hook}})

		decision, err := c.Decide(test_user, "buy_button", api.DecideOptions{})
		// the decision still stands and the hook error is not returned
		assert.NoError(t, err)
		assert.Equal(t, "buy_button", decision.FlagKey)
		assert.Equal(t, []string{"error", "finally"}, calls)
		assert.ErrorIs(t, reported, beforeHookError)
	})

	t.Run("flag not found", func(t *testing.T) {
		var reported error
		finallyCalled := false
		hook := NewEvalHook(
			nil,
			func(context *HookContext, decision *api.Decision) error {
				t.Error("After hook should not be called for an unknown flag")
				return nil
			},
			func(context *HookContext, decision *api.Decision) error {
				finallyCalled = true
				assert.Empty(t, decision.FlagKey)
				return nil
			},
			func(context *HookContext, evalError error) error {
				reported = evalError
				return nil
			},
		)
		c := newTestClient(t, &Options{EvalHooks: []*EvalHook{hook}})

		_, err := c.Decide(test_user, "nonexistent", api.DecideOptions{})
		var notFound *FlagNotFoundError
		require.ErrorAs(t, err, &notFound)
		require.ErrorAs(t, reported, &notFound)
		assert.True(t, finallyCalled)
	})

	t.Run("after hook error", func(t *testing.T) {
		var reported error
		c := newTestClient(t, nil)
		c.AddHook(NewEvalHook(
			nil,
			func(context *HookContext, decision *api.Decision) error { return errors.New("after failed") },
			nil,
			func(context *HookContext, evalError error) error {
				reported = evalError
				return nil
			},
		))

		_, err := c.Decide(test_user, "buy_button", api.DecideOptions{})
		require.NoError(t, err)
		var afterHookError *AfterHookError
		require.ErrorAs(t, reported, &afterHookError)

		c.ClearHooks()
		reported = nil
		_, err = c.Decide(test_user, "buy_button", api.DecideOptions{})
		require.NoError(t, err)
		assert.NoError(t, reported)
	})
}
