// Package domain holds cross-cutting domain types and sentinel errors.
package domain

import "errors"

var (
	// ErrValidation signals a malformed client request (missing query, or
	// neither user id nor groups supplied). Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized signals a missing or invalid API credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBackendUnavailable signals that a retrieval backend call failed or
	// timed out. Recovered locally by the fan-out: the request proceeds with
	// whatever the other backends returned.
	ErrBackendUnavailable = errors.New("retrieval backend unavailable")
	// ErrMalformedACL signals unparseable access-control attributes.
	// Recovered locally by falling back to an empty-but-valid policy.
	ErrMalformedACL = errors.New("malformed acl attributes")
	// ErrGenerationFailed signals a generative model call failure.
	// Surfaced to the caller; retry policy belongs to the caller.
	ErrGenerationFailed = errors.New("generation failed")
)

// KeyPrefix namespaces every key the gateway writes to its store.
const KeyPrefix = "kbgate:"

// Staging key spaces shared by the sync pipeline and the primary index.
const (
	// StagingDocPrefix holds canonical document hashes awaiting indexing.
	StagingDocPrefix = KeyPrefix + "staging:doc:"
	// StagingObjPrefix holds staged file objects (composed text documents,
	// chunked page windows).
	StagingObjPrefix = KeyPrefix + "staging:obj:"
)
