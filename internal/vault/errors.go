package vault

import "errors"

// ErrNotFound means the vault has no record for the requested
// clientId/version. It is never retried.
var ErrNotFound = errors.New("vault: credential not found")

// ErrUnavailable means the vault call failed in a way the retry policy
// considers transient (connection refused, timeout, 5xx). It is the
// only error kind retried, and the only one that may trigger the
// degraded-mode fallback cache in the credential validator.
var ErrUnavailable = errors.New("vault: unavailable")
