// Package token provides token counting for context budgeting.
package token

// Counter reports the token cost of a piece of text. Implementations must be
// deterministic for a fixed model configuration and must not mutate shared
// state. Errors propagate unchanged through the context core.
type Counter interface {
	Count(text string) (int, error)
}
