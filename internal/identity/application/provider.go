package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	access "github.com/felixgeelhaar/thermae/internal/access/domain"
	"github.com/felixgeelhaar/thermae/internal/identity/domain"
)

// Provider turns a session token into the tri-state lookup the access gate
// consumes. An invalid or missing token is anonymous; a member store that
// fails or does not answer within the timeout leaves the lookup pending.
type Provider struct {
	tokens  *TokenIssuer
	repo    domain.MemberRepository
	timeout time.Duration
	logger  *slog.Logger
}

// NewProvider creates a provider. A non-positive timeout means 2s.
func NewProvider(tokens *TokenIssuer, repo domain.MemberRepository, timeout time.Duration, logger *slog.Logger) *Provider {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{tokens: tokens, repo: repo, timeout: timeout, logger: logger}
}

// Lookup resolves token.
func (p *Provider) Lookup(ctx context.Context, token string) access.Lookup {
	if token == "" {
		return access.Anonymous()
	}
	memberID, err := p.tokens.Verify(token)
	if err != nil {
		return access.Anonymous()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	member, err := p.repo.FindByID(ctx, memberID)
	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		return access.Anonymous()
	case err != nil:
		p.logger.WarnContext(ctx, "identity lookup unresolved", "member_id", memberID, "error", err)
		return access.Pending()
	}

	return access.Authenticated(access.Identity{
		MemberID: member.ID(),
		Role:     member.Role(),
	})
}
