package flagdecide

import "github.com/flagdecide/go-server-sdk/api"

// EvalHook represents a hook that can be executed around a decide call
type EvalHook struct {
	// Before is called before the flag is decided
	Before func(context *HookContext) error
	// After is called after a successful decision (only if Before didn't error)
	After func(context *HookContext, decision *api.Decision) error
	// OnFinally is called after the decision regardless of errors
	OnFinally func(context *HookContext, decision *api.Decision) error
	// Error is called when an error occurs during the decide call
	Error func(context *HookContext, evalError error) error
}

// NewEvalHook creates a new EvalHook with the provided functions
func NewEvalHook(before func(context *HookContext) error, after func(context *HookContext, decision *api.Decision) error, onFinally func(context *HookContext, decision *api.Decision) error, error func(context *HookContext, evalError error) error) *EvalHook {
	return &EvalHook{
		Before:    before,
		After:     after,
		OnFinally: onFinally,
		Error:     error,
	}
}
