package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/thermae/internal/identity/domain"
	"github.com/felixgeelhaar/thermae/internal/notify"
	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/kv"
)

const (
	// CodeTTL is how long a sign-in code stays valid.
	CodeTTL = 5 * time.Minute
	// MaxCodeAttempts is the number of wrong guesses before a code is burned.
	MaxCodeAttempts = 5
)

var (
	ErrCodeInvalid = errors.New("verification code is invalid or expired")
)

// Session is the result of a successful sign-in.
type Session struct {
	Member    *domain.Member
	Token     string
	ExpiresAt time.Time
	Created   bool
}

// Verification runs the SMS sign-in flow: request a code, then exchange it
// for a session token.
type Verification struct {
	store    kv.Store
	sender   notify.Sender
	members  *Members
	tokens   *TokenIssuer
	generate func() (string, error)
	logger   *slog.Logger
}

// NewVerification creates the sign-in service.
func NewVerification(store kv.Store, sender notify.Sender, members *Members, tokens *TokenIssuer, logger *slog.Logger) *Verification {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verification{
		store:    store,
		sender:   sender,
		members:  members,
		tokens:   tokens,
		generate: notify.GenerateCode,
		logger:   logger,
	}
}

// RequestCode sends a fresh code to phone, replacing any outstanding one.
// Delivery failures are returned and the code is discarded.
func (v *Verification) RequestCode(ctx context.Context, rawPhone string) error {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return err
	}

	code, err := v.generate()
	if err != nil {
		return err
	}
	if err := v.store.Set(ctx, codeKey(phone), code, CodeTTL); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	// A new code gets a fresh attempt budget.
	_ = v.store.Remove(ctx, attemptsKey(phone))

	body := fmt.Sprintf("Your Thermae sign-in code is %s. It expires in %d minutes.", code, int(CodeTTL.Minutes()))
	if err := v.sender.Send(ctx, phone.String(), body); err != nil {
		_ = v.store.Remove(ctx, codeKey(phone))
		return fmt.Errorf("deliver verification code: %w", err)
	}

	v.logger.InfoContext(ctx, "verification code sent", "phone", phone.Masked())
	return nil
}

// VerifyCode consumes code and returns a session for the member with phone,
// registering the member on first sign-in.
func (v *Verification) VerifyCode(ctx context.Context, rawPhone, code, name string) (*Session, error) {
	phone, err := domain.NewPhone(rawPhone)
	if err != nil {
		return nil, err
	}

	stored, ok, err := v.store.Get(ctx, codeKey(phone))
	if err != nil {
		return nil, fmt.Errorf("read verification code: %w", err)
	}
	if !ok {
		return nil, ErrCodeInvalid
	}

	// Every attempt is counted before comparing, so parallel guesses share
	// one budget of MaxCodeAttempts.
	attempts, err := v.store.Incr(ctx, attemptsKey(phone), CodeTTL)
	if err != nil {
		return nil, fmt.Errorf("count verification attempt: %w", err)
	}
	if attempts > MaxCodeAttempts {
		v.burn(ctx, phone)
		return nil, ErrCodeInvalid
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		if attempts >= MaxCodeAttempts {
			v.burn(ctx, phone)
		}
		return nil, ErrCodeInvalid
	}
	if err := v.store.Remove(ctx, codeKey(phone)); err != nil {
		return nil, fmt.Errorf("consume verification code: %w", err)
	}
	_ = v.store.Remove(ctx, attemptsKey(phone))

	member, created, err := v.members.FindOrRegister(ctx, phone, name)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := v.tokens.Issue(member.ID())
	if err != nil {
		return nil, err
	}

	v.logger.InfoContext(ctx, "member signed in", "member_id", member.ID(), "new", created)
	return &Session{Member: member, Token: token, ExpiresAt: expiresAt, Created: created}, nil
}

func (v *Verification) burn(ctx context.Context, phone domain.Phone) {
	v.logger.WarnContext(ctx, "verification code burned after repeated failures", "phone", phone.Masked())
	_ = v.store.Remove(ctx, codeKey(phone))
}

func codeKey(phone domain.Phone) string {
	return "verify:" + phone.String()
}

func attemptsKey(phone domain.Phone) string {
	return "verify:" + phone.String() + ":attempts"
}
