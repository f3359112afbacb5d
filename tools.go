//go:build tools

// Package chat_presence pins mockgen so the go:generate directives under contract/ and
// repositories/ run against the version recorded in go.mod.
package chat_presence

import (
	_ "go.uber.org/mock/mockgen"
)
