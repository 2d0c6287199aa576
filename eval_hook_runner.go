package flagdecide

import (
	"fmt"
	"sync"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/util"
)

// BeforeHookError represents an error that occurred during a before hook
type BeforeHookError struct {
	HookIndex int
	Err       error
}

func (e *BeforeHookError) Error() string {
	return fmt.Sprintf("before hook %d failed: %v", e.HookIndex, e.Err)
}

func (e *BeforeHookError) Unwrap() error {
	return e.Err
}

// AfterHookError represents an error that occurred during an after hook
type AfterHookError struct {
	HookIndex int
	Err       error
}

func (e *AfterHookError) Error() string {
	return fmt.Sprintf("after hook %d failed: %v", e.HookIndex, e.Err)
}

func (e *AfterHookError) Unwrap() error {
	return e.Err
}

// EvalHookRunner manages and executes evaluation hooks
type EvalHookRunner struct {
	mu    sync.RWMutex
	hooks []*EvalHook
}

// NewEvalHookRunner creates a new EvalHookRunner with the provided hooks
func NewEvalHookRunner(hooks []*EvalHook) *EvalHookRunner {
	return &EvalHookRunner{
		hooks: append([]*EvalHook(nil), hooks...),
	}
}

// Hooks returns the registered hooks. The slice is never modified in place.
func (r *EvalHookRunner) Hooks() []*EvalHook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks
}

// RunBeforeHooks runs all before hooks in order
func (r *EvalHookRunner) RunBeforeHooks(hooks []*EvalHook, context *HookContext) error {
	if context == nil {
		return nil
	}
	for i, hook := range hooks {
		if hook.Before != nil {
			if err := hook.Before(context); err != nil {
				_ = util.Errorf("Before hook %d failed: %v", i, err)
				return &BeforeHookError{HookIndex: i, Err: err}
			}
		}
	}
	return nil
}

// RunAfterHooks runs all after hooks in reverse order
func (r *EvalHookRunner) RunAfterHooks(hooks []*EvalHook, context *HookContext, decision api.Decision) error {
	if context == nil {
		return nil
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.After != nil {
			if err := hook.After(context, &decision); err != nil {
				_ = util.Errorf("After hook %d failed: %v", i, err)
				return &AfterHookError{HookIndex: i, Err: err}
			}
		}
	}
	return nil
}

// RunOnFinallyHooks runs all onFinally hooks in reverse order
func (r *EvalHookRunner) RunOnFinallyHooks(hooks []*EvalHook, context *HookContext, decision api.Decision) {
	if context == nil {
		return
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.OnFinally != nil {
			if err := hook.OnFinally(context, &decision); err != nil {
				_ = util.Errorf("OnFinally hook %d failed: %v", i, err)
			}
		}
	}
}

// RunErrorHooks runs all error hooks in reverse order
func (r *EvalHookRunner) RunErrorHooks(hooks []*EvalHook, context *HookContext, evalError error) {
	if context == nil {
		return
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.Error != nil {
			if err := hook.Error(context, evalError); err != nil {
				_ = util.Errorf("Error hook %d failed: %v", i, err)
			}
		}
	}
}

func (r *EvalHookRunner) AddHook(hook *EvalHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hooks := make([]*EvalHook, 0, len(r.hooks)+1)
	r.hooks = append(append(hooks, r.hooks...), hook)
}

func (r *EvalHookRunner) ClearHooks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = []*EvalHook{}
}
