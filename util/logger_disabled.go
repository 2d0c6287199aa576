//go:build !flagdecide_debug_logging

package util

func Debugf(format string, a ...any) {}
