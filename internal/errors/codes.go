// Package errors provides structured error handling for sitequery.
//
// Every failure that crosses a component boundary is classified into one of
// seven kinds. The kind determines the HTTP status, whether the orchestrator
// may continue with a degraded response, and whether a retry can help.
package errors

// Kind classifies a failure.
type Kind string

const (
	// KindValidation is bad caller input. Never retried.
	KindValidation Kind = "VALIDATION"

	// KindTimeout is a deadline exceeded. The caller may retry.
	KindTimeout Kind = "TIMEOUT"

	// KindDependencyDegraded is a non-essential external failure.
	// The pipeline proceeds without that dependency's contribution.
	KindDependencyDegraded Kind = "DEPENDENCY_DEGRADED"

	// KindDependencyFatal is an essential dependency failure.
	KindDependencyFatal Kind = "DEPENDENCY_FATAL"

	// KindNotFound is an unknown entity id.
	KindNotFound Kind = "NOT_FOUND"

	// KindRateLimited is an exceeded inbound throttle.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindInternal is an unexpected bug.
	KindInternal Kind = "INTERNAL"
)

// Error codes, one per kind. Stable across releases; clients match on these.
const (
	CodeValidation  = "ERR_VALIDATION"
	CodeTimeout     = "ERR_TIMEOUT"
	CodeDegraded    = "ERR_DEPENDENCY_DEGRADED"
	CodeFatal       = "ERR_DEPENDENCY_FATAL"
	CodeNotFound    = "ERR_NOT_FOUND"
	CodeRateLimited = "ERR_RATE_LIMITED"
	CodeInternal    = "ERR_INTERNAL"
)

// codeForKind maps a kind to its stable code.
func codeForKind(k Kind) string {
	switch k {
	case KindValidation:
		return CodeValidation
	case KindTimeout:
		return CodeTimeout
	case KindDependencyDegraded:
		return CodeDegraded
	case KindDependencyFatal:
		return CodeFatal
	case KindNotFound:
		return CodeNotFound
	case KindRateLimited:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}

// Retryable reports whether failures of this kind may succeed on retry.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindDependencyDegraded, KindDependencyFatal, KindRateLimited:
		return true
	default:
		return false
	}
}
