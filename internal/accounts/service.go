package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"

	"github.com/deepchat-ai/deepchat/internal/db"
	"github.com/deepchat-ai/deepchat/internal/db/sqlc"
)

// Queries is the subset of sqlc.Queries the account service needs.
type Queries interface {
	CreateUser(ctx context.Context, arg sqlc.CreateUserParams) (sqlc.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (sqlc.User, error)
	GetUserByEmail(ctx context.Context, email string) (sqlc.User, error)
	GetUserByUsername(ctx context.Context, username string) (sqlc.User, error)
	GetUserByResetToken(ctx context.Context, resetTokenHash pgtype.Text) (sqlc.User, error)
	UpdateUserLastLogin(ctx context.Context, id pgtype.UUID) error
	UpdateUserProfile(ctx context.Context, arg sqlc.UpdateUserProfileParams) (sqlc.User, error)
	UpdateUserAIModel(ctx context.Context, arg sqlc.UpdateUserAIModelParams) error
	UpdateUserPassword(ctx context.Context, arg sqlc.UpdateUserPasswordParams) error
	UpdateUserEmail(ctx context.Context, arg sqlc.UpdateUserEmailParams) (sqlc.User, error)
	SetUserResetToken(ctx context.Context, arg sqlc.SetUserResetTokenParams) error
	ResetUserPassword(ctx context.Context, arg sqlc.ResetUserPasswordParams) error
	ClearExpiredResetTokens(ctx context.Context) (int64, error)
}

// Service owns user accounts and their credentials.
type Service struct {
	queries Queries
	logger  *slog.Logger
	cost    int
	now     func() time.Time
}

func NewService(log *slog.Logger, queries Queries) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		queries: queries,
		logger:  log.With(slog.String("service", "accounts")),
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	row, err := s.getRow(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return toUser(row), nil
}

func (s *Service) getRow(ctx context.Context, userID string) (sqlc.User, error) {
	id, err := db.ParseUUID(userID)
	if err != nil {
		return sqlc.User{}, ErrNotFound
	}
	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sqlc.User{}, ErrNotFound
		}
		return sqlc.User{}, fmt.Errorf("get user: %w", err)
	}
	return row, nil
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.queries.GetUserByEmail(ctx, NormalizeEmail(email))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("lookup email: %w", err)
}

func (s *Service) usernameExists(ctx context.Context, username string) (bool, error) {
	_, err := s.queries.GetUserByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("lookup username: %w", err)
}

// Register creates a verified account. The caller has already checked the
// verification code.
func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if err := validateUsername(username); err != nil {
		return User{}, err
	}
	if err := validatePassword(password); err != nil {
		return User{}, err
	}
	if taken, err := s.EmailExists(ctx, email); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrEmailTaken
	}
	if taken, err := s.usernameExists(ctx, username); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrUsernameTaken
	}
	return s.create(ctx, username, email, password)
}

func (s *Service) create(ctx context.Context, username, email, password string) (User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	row, err := s.queries.CreateUser(ctx, sqlc.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		IsVerified:   true,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", slog.String("user_id", db.UUIDString(row.ID)))
	return toUser(row), nil
}

// Authenticate checks an email and password pair and records the login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	row, err := s.queries.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return s.recordLogin(ctx, row), nil
}

// LoginOrCreate returns the account for email, creating one when absent.
// created reports whether a new account was made.
func (s *Service) LoginOrCreate(ctx context.Context, email string) (user User, created bool, err error) {
	email = NormalizeEmail(email)
	row, err := s.queries.GetUserByEmail(ctx, email)
	if err == nil {
		return s.recordLogin(ctx, row), false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return User{}, false, fmt.Errorf("lookup user: %w", err)
	}
	username, err := s.availableUsername(ctx, email)
	if err != nil {
		return User{}, false, err
	}
	password, err := randomHex(16)
	if err != nil {
		return User{}, false, err
	}
	user, err = s.create(ctx, username, email, password)
	if err != nil {
		return User{}, false, err
	}
	now := s.now().UTC()
	user.LastLogin = &now
	if err := s.queries.UpdateUserLastLogin(ctx, mustUUID(user.ID)); err != nil {
		s.logger.Warn("record login failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return user, true, nil
}

func (s *Service) recordLogin(ctx context.Context, row sqlc.User) User {
	if err := s.queries.UpdateUserLastLogin(ctx, row.ID); err != nil {
		s.logger.Warn("record login failed", slog.String("user_id", db.UUIDString(row.ID)), slog.Any("error", err))
	}
	user := toUser(row)
	now := s.now().UTC()
	user.LastLogin = &now
	return user
}

// availableUsername derives a username from the local part of email and
// appends a numeric suffix until it is unused.
func (s *Service) availableUsername(ctx context.Context, email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	base = strings.TrimSpace(base)
	for utf8.RuneCountInString(base) < MinUsernameLength {
		base += "_"
	}
	base = truncateRunes(base, MaxUsernameLength)
	candidate := base
	for i := 1; i <= 1000; i++ {
		taken, err := s.usernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix := strconv.Itoa(i)
		candidate = truncateRunes(base, MaxUsernameLength-len(suffix)) + suffix
	}
	return "", fmt.Errorf("no free username for %q: %w", base, ErrConflict)
}

// UpdateProfile applies the non-nil fields of req.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (User, error) {
	row, err := s.getRow(ctx, userID)
	if err != nil {
		return User{}, err
	}
	params := sqlc.UpdateUserProfileParams{
		ID:            row.ID,
		Username:      row.Username,
		Avatar:        row.Avatar,
		Theme:         row.Theme,
		Language:      row.Language,
		Notifications: row.Notifications,
		AiModel:       row.AiModel,
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if err := validateUsername(username); err != nil {
			return User{}, err
		}
		if username != row.Username {
			if taken, err := s.usernameExists(ctx, username); err != nil {
				return User{}, err
			} else if taken {
				return User{}, ErrUsernameTaken
			}
		}
		params.Username = username
	}
	if req.Avatar != nil {
		params.Avatar = strings.TrimSpace(*req.Avatar)
		if params.Avatar == "" {
			params.Avatar = DefaultAvatar
		}
	}
	if st := req.Settings; st != nil {
		if st.Theme != nil {
			if *st.Theme != "light" && *st.Theme != "dark" {
				return User{}, fmt.Errorf("theme %q: %w", *st.Theme, ErrInvalidInput)
			}
			params.Theme = *st.Theme
		}
		if st.Language != nil {
			if *st.Language != "zh-CN" && *st.Language != "en-US" {
				return User{}, fmt.Errorf("language %q: %w", *st.Language, ErrInvalidInput)
			}
			params.Language = *st.Language
		}
		if st.Notifications != nil {
			params.Notifications = *st.Notifications
		}
		if st.AIModel != nil && strings.TrimSpace(*st.AIModel) != "" {
			params.AiModel = strings.TrimSpace(*st.AIModel)
		}
	}
	updated, err := s.queries.UpdateUserProfile(ctx, params)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	return toUser(updated), nil
}

func (s *Service) SetModel(ctx context.Context, userID, modelID string) error {
	id, err := db.ParseUUID(userID)
	if err != nil {
		return ErrNotFound
	}
	if err := s.queries.UpdateUserAIModel(ctx, sqlc.UpdateUserAIModelParams{ID: id, AiModel: modelID}); err != nil {
		return fmt.Errorf("update model: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password after checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, userID, current, next string) error {
	row, err := s.getRow(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(current)) != nil {
		return ErrInvalidPassword
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.queries.UpdateUserPassword(ctx, sqlc.UpdateUserPasswordParams{ID: row.ID, PasswordHash: string(hashed)}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateEmail moves the account to a new, already verified address.
func (s *Service) UpdateEmail(ctx context.Context, userID, newEmail string) (User, error) {
	row, err := s.getRow(ctx, userID)
	if err != nil {
		return User{}, err
	}
	newEmail = NormalizeEmail(newEmail)
	if newEmail == row.Email {
		return toUser(row), nil
	}
	if taken, err := s.EmailExists(ctx, newEmail); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrEmailTaken
	}
	updated, err := s.queries.UpdateUserEmail(ctx, sqlc.UpdateUserEmailParams{ID: row.ID, Email: newEmail})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("update email: %w", err)
	}
	return toUser(updated), nil
}

// IssueResetToken creates a single-use reset token for the account at email.
// Only the SHA-256 of the token is stored.
func (s *Service) IssueResetToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	row, err := s.queries.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	token, err := randomHex(32)
	if err != nil {
		return "", err
	}
	err = s.queries.SetUserResetToken(ctx, sqlc.SetUserResetTokenParams{
		ID:                  row.ID,
		ResetTokenHash:      db.TextToPg(hashToken(token)),
		ResetTokenExpiresAt: db.TimeToPg(s.now().UTC().Add(ttl)),
	})
	if err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// ResetPassword sets a new password using a reset token and clears the token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrInvalidResetToken
	}
	if err := validatePassword(password); err != nil {
		return User{}, err
	}
	row, err := s.queries.GetUserByResetToken(ctx, db.TextToPg(hashToken(token)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrInvalidResetToken
		}
		return User{}, fmt.Errorf("lookup reset token: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.queries.ResetUserPassword(ctx, sqlc.ResetUserPasswordParams{ID: row.ID, PasswordHash: string(hashed)}); err != nil {
		return User{}, fmt.Errorf("reset password: %w", err)
	}
	s.logger.Info("password reset", slog.String("user_id", db.UUIDString(row.ID)))
	return toUser(row), nil
}

// PurgeExpiredResetTokens clears reset tokens past their expiry.
func (s *Service) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	n, err := s.queries.ClearExpiredResetTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear reset tokens: %w", err)
	}
	return n, nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("username must be %d-%d characters: %w", MinUsernameLength, MaxUsernameLength, ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, ErrInvalidInput)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func mustUUID(id string) pgtype.UUID {
	parsed, _ := db.ParseUUID(id)
	return parsed
}

func toUser(row sqlc.User) User {
	user := User{
		ID:         db.UUIDString(row.ID),
		Username:   row.Username,
		Email:      row.Email,
		Avatar:     row.Avatar,
		IsVerified: row.IsVerified,
		Settings: Settings{
			Theme:         row.Theme,
			Language:      row.Language,
			Notifications: row.Notifications,
			AIModel:       row.AiModel,
		},
		CreatedAt: db.TimeFromPg(row.CreatedAt),
		UpdatedAt: db.TimeFromPg(row.UpdatedAt),
	}
	if user.Avatar == "" {
		user.Avatar = DefaultAvatar
	}
	if row.LastLoginAt.Valid {
		t := row.LastLoginAt.Time
		user.LastLogin = &t
	}
	return user
}
