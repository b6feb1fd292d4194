package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deepchat-ai/deepchat/internal/db"
	"github.com/deepchat-ai/deepchat/internal/db/sqlc"
)

var (
	ErrInvalidCode    = errors.New("verification code invalid or expired")
	ErrTooManyGuesses = errors.New("verification code invalidated after too many attempts")
	ErrRateLimited    = errors.New("verification code requested too often")
	ErrInvalidPurpose = errors.New("invalid verification purpose")
	ErrDeliveryFailed = errors.New("verification code delivery failed")
	ErrNotConfigured  = errors.New("verification store not configured")
)

const (
	defaultCodeTTL     = 10 * time.Minute
	defaultResendEvery = time.Minute
	defaultMaxAttempts = 5
)

// Queries is the subset of sqlc.Queries used for codes.
type Queries interface {
	UpsertVerificationCode(ctx context.Context, arg sqlc.UpsertVerificationCodeParams) (sqlc.VerificationCode, error)
	GetVerificationCode(ctx context.Context, arg sqlc.GetVerificationCodeParams) (sqlc.VerificationCode, error)
	IncrementVerificationCodeAttempts(ctx context.Context, arg sqlc.IncrementVerificationCodeAttemptsParams) (int32, error)
	DeleteVerificationCode(ctx context.Context, arg sqlc.DeleteVerificationCodeParams) error
	DeleteExpiredVerificationCodes(ctx context.Context) (int64, error)
}

// CodeSender delivers a code to an address.
type CodeSender interface {
	SendCode(ctx context.Context, to string, purpose Purpose, code string) error
}

type Config struct {
	CodeTTL     time.Duration
	ResendEvery time.Duration
	// MaxAttempts is the number of wrong guesses after which a code is
	// deleted.
	MaxAttempts int
}

type Service struct {
	queries     Queries
	sender      CodeSender
	limiter     *sendLimiter
	codeTTL     time.Duration
	maxAttempts int32
	logger      *slog.Logger
	now         func() time.Time
	generate    func() (string, error)
}

func NewService(log *slog.Logger, queries Queries, sender CodeSender, cfg Config) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = defaultCodeTTL
	}
	if cfg.ResendEvery <= 0 {
		cfg.ResendEvery = defaultResendEvery
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Service{
		queries:     queries,
		sender:      sender,
		limiter:     newSendLimiter(cfg.ResendEvery),
		codeTTL:     cfg.CodeTTL,
		maxAttempts: int32(cfg.MaxAttempts),
		logger:      log.With(slog.String("service", "verification")),
		now:         time.Now,
		generate:    GenerateCode,
	}
}

// CodeTTL is the lifetime of a freshly issued code.
func (s *Service) CodeTTL() time.Duration { return s.codeTTL }

// Send issues a new code for (email, purpose), replacing any previous one,
// and delivers it.
func (s *Service) Send(ctx context.Context, email string, purpose Purpose) error {
	if s.queries == nil {
		return ErrNotConfigured
	}
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}
	email = normalize(email)
	now := s.now()
	if !s.limiter.AllowAt(email, now) {
		return ErrRateLimited
	}
	code, err := s.generate()
	if err != nil {
		return err
	}
	_, err = s.queries.UpsertVerificationCode(ctx, sqlc.UpsertVerificationCodeParams{
		Email:     email,
		Purpose:   string(purpose),
		Code:      code,
		ExpiresAt: db.TimeToPg(now.Add(s.codeTTL).UTC()),
	})
	if err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	if s.sender == nil {
		s.logger.Warn("no code sender configured", slog.String("email", email), slog.String("purpose", string(purpose)))
		return nil
	}
	if err := s.sender.SendCode(ctx, email, purpose, code); err != nil {
		s.logger.Error("send verification code failed", slog.String("purpose", string(purpose)), slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	s.logger.Info("verification code sent", slog.String("purpose", string(purpose)))
	return nil
}

// Verify reports whether code is the live code for (email, purpose). The code
// stays valid until Consume. Every wrong guess is counted, and the code is
// deleted once MaxAttempts guesses have missed.
func (s *Service) Verify(ctx context.Context, email string, purpose Purpose, code string) error {
	if s.queries == nil {
		return ErrNotConfigured
	}
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}
	email = normalize(email)
	row, err := s.queries.GetVerificationCode(ctx, sqlc.GetVerificationCodeParams{
		Email:   email,
		Purpose: string(purpose),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidCode
		}
		return fmt.Errorf("load verification code: %w", err)
	}
	if !row.ExpiresAt.Valid || !row.ExpiresAt.Time.After(s.now()) {
		return ErrInvalidCode
	}
	if row.Attempts >= s.maxAttempts {
		return s.invalidate(ctx, email, purpose)
	}
	if subtle.ConstantTimeCompare([]byte(row.Code), []byte(strings.TrimSpace(code))) != 1 {
		return s.recordMiss(ctx, email, purpose)
	}
	return nil
}

func (s *Service) recordMiss(ctx context.Context, email string, purpose Purpose) error {
	attempts, err := s.queries.IncrementVerificationCodeAttempts(ctx, sqlc.IncrementVerificationCodeAttemptsParams{
		Email:   email,
		Purpose: string(purpose),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidCode
		}
		return fmt.Errorf("count verification attempt: %w", err)
	}
	if attempts >= s.maxAttempts {
		return s.invalidate(ctx, email, purpose)
	}
	return ErrInvalidCode
}

func (s *Service) invalidate(ctx context.Context, email string, purpose Purpose) error {
	s.logger.Warn("verification code invalidated after repeated misses", slog.String("purpose", string(purpose)))
	if err := s.Consume(ctx, email, purpose); err != nil {
		return err
	}
	return ErrTooManyGuesses
}

// Consume deletes the code for (email, purpose).
func (s *Service) Consume(ctx context.Context, email string, purpose Purpose) error {
	if s.queries == nil {
		return ErrNotConfigured
	}
	err := s.queries.DeleteVerificationCode(ctx, sqlc.DeleteVerificationCodeParams{
		Email:   normalize(email),
		Purpose: string(purpose),
	})
	if err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}

// PurgeExpired removes expired codes and idle rate limiter entries.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.queries == nil {
		return 0, ErrNotConfigured
	}
	s.limiter.Prune(s.now())
	n, err := s.queries.DeleteExpiredVerificationCodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge verification codes: %w", err)
	}
	return n, nil
}

// GenerateCode returns a uniformly random six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
