package volition

import (
	"sync"

	"github.com/google/uuid"
)

// TokenSource mints chain tokens for dispatch correlation.
//
// Every externally accepted wish and every bootstrapper action starts a
// new causal chain; follow-up actions produced by the post-processor
// inherit the parent's token. Tokens appear in structured logs and
// failure errors so a cascade can be traced back to the wish that
// started it. They never enter user-visible state or news.
//
// Implemented by UUIDSource (production) and FixedSource (tests).
type TokenSource interface {
	Token() string
}

// UUIDSource mints time-sortable UUIDv7 chain tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time. This is helpful for debugging and trace
// visualization.
//
// Uses github.com/google/uuid package for RFC 4122 compliant UUIDs.
//
// Thread-safety: UUIDSource is stateless and safe for concurrent use.
type UUIDSource struct{}

// Token creates a new UUIDv7 and returns it as a hyphenated string.
//
// Format: "550e8400-e29b-41d4-a716-446655440000" (36 characters)
//
// Panics if UUID generation fails (should never happen in practice).
func (s UUIDSource) Token() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedSource returns predetermined chain tokens for testing.
//
// This enables deterministic test execution and golden trace comparison.
// Tests can provide a known sequence of tokens and verify exact output.
//
// Thread-safety: FixedSource is safe for concurrent use via internal mutex.
type FixedSource struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedSource creates a source that returns tokens in order.
//
// Example:
//
//	src := NewFixedSource("chain-1", "chain-2", "chain-3")
//	src.Token() // "chain-1"
//	src.Token() // "chain-2"
//	src.Token() // "chain-3"
//	src.Token() // panic: all tokens exhausted
func NewFixedSource(tokens ...string) *FixedSource {
	return &FixedSource{
		tokens: tokens,
		idx:    0,
	}
}

// Token returns the next predetermined token.
// Thread-safe: uses mutex to protect index access.
//
// Panics if all tokens have been consumed. This is a fail-fast approach
// to catch test misconfiguration (test started more chains than expected).
func (s *FixedSource) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.tokens) {
		panic("FixedSource: all tokens exhausted")
	}
	token := s.tokens[s.idx]
	s.idx++
	return token
}
