package compiler

import "errors"

var (
	// ErrNoRenderableContent means nothing survived placeholder and asset
	// filtering; the model cannot produce output.
	ErrNoRenderableContent = errors.New("timeline has no renderable content")

	// ErrInvariant marks an internal contract breach inside the compiler.
	// It indicates a defect, never user error, and is always fatal.
	ErrInvariant = errors.New("compile invariant violation")
)
