package domain

import "errors"

// ErrNotFound marks missing-row conditions. Callers check it with
// errors.Is instead of matching message text; the retry layer must never
// retry it.
var ErrNotFound = errors.New("not found")
