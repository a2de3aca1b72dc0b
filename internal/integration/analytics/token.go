package analytics

import "context"

// TokenSource supplies the bearer token for analytics API calls and can
// refresh it when the service reports the token expired.
type TokenSource interface {
	// Token returns the current access token.
	Token(ctx context.Context) (string, error)
	// Refresh obtains a new access token after an authorization failure.
	Refresh(ctx context.Context) (string, error)
}

// StaticTokenSource is a TokenSource over a fixed token, typically loaded
// from configuration. Refresh returns the same token.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a TokenSource over a fixed token.
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the fixed token.
func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	return s.token, nil
}

// Refresh returns the fixed token; static tokens cannot be renewed.
func (s *StaticTokenSource) Refresh(ctx context.Context) (string, error) {
	return s.token, nil
}

var _ TokenSource = (*StaticTokenSource)(nil)
