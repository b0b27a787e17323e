package backend

import "errors"

// ErrUnknownProvider is returned by Registry.Build for an unrecognized
// provider tag.
var ErrUnknownProvider = errors.New("backend: unknown provider")
