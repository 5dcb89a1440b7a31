package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"modestwear/internal/auth"
	"modestwear/internal/domain"
	applog "modestwear/internal/log"
	"modestwear/internal/mailer"
	"modestwear/internal/media"
	"modestwear/internal/repos"
	"modestwear/internal/validate"
)

const (
	verifyTokenPrefix = "email_verify:"
	resetTokenPrefix  = "password_reset:"
	verifyRatePrefix  = "verification_email:"
	resetRatePrefix   = "password_reset_rate:"

	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
	mailRateWindow = 300 * time.Second
)

// KV is the expiring key-value store used for one-time tokens and send
// throttles.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, ttl time.Duration) error
	SetNX(key string, val []byte, ttl time.Duration) (bool, error)
	Delete(key string) error
}

type AuthService struct {
	Users   *repos.UserRepo
	Tokens  *auth.Manager
	KV      KV
	Mail    mailer.Mailer
	Compose *mailer.Composer
	Media   media.ObjectStore

	log zerolog.Logger
}

func NewAuthService(users *repos.UserRepo, tokens *auth.Manager, store KV, mail mailer.Mailer, compose *mailer.Composer, objects media.ObjectStore) *AuthService {
	return &AuthService{
		Users: users, Tokens: tokens, KV: store, Mail: mail, Compose: compose, Media: objects,
		log: applog.Component("auth"),
	}
}

type RegisterInput struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Username        string `json:"username" validate:"required,min=2,max=64"`
	Password        string `json:"password" validate:"required,password"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"max=128"`
	LastName        string `json:"last_name" validate:"max=128"`
	Phone           string `json:"phone_number" validate:"omitempty,phone"`
}

// Register creates an unverified account and sends the verification mail.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email: in.Email, Username: in.Username, FirstName: in.FirstName, LastName: in.LastName,
		Phone: in.Phone, Hash: string(hash), IsActive: true,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID).Msg("user.registered")
	if err := s.sendVerification(ctx, u); err != nil {
		s.log.Error().Err(err).Str("user_id", u.ID).Msg("verification.send")
	}
	return u, nil
}

// Login checks credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, auth.Pair, error) {
	email, ok := validate.Email(email)
	if !ok || password == "" {
		return nil, auth.Pair{}, ErrBadCreds
	}
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, auth.Pair{}, ErrBadCreds
	}
	if err != nil {
		return nil, auth.Pair{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, auth.Pair{}, ErrBadCreds
	}
	if !u.IsActive {
		return nil, auth.Pair{}, ErrInactive
	}
	pair, err := s.Tokens.Issue(u.ID, u.Email, u.IsStaff)
	if err != nil {
		return nil, auth.Pair{}, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token into a new pair. The old refresh token
// cannot be used again.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (auth.Pair, error) {
	claims, err := s.Tokens.Rotate(refresh)
	if err != nil {
		return auth.Pair{}, tokenErr(err)
	}
	u, err := s.Users.ByID(ctx, claims.Subject)
	if errors.Is(err, repos.ErrNotFound) {
		return auth.Pair{}, ErrInvalidToken
	}
	if err != nil {
		return auth.Pair{}, err
	}
	if !u.IsActive {
		return auth.Pair{}, ErrInactive
	}
	return s.Tokens.Issue(u.ID, u.Email, u.IsStaff)
}

// Logout revokes the presented access token and, when given, the refresh
// token of the same session.
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refresh string) error {
	if err := s.Tokens.Revoke(access, "logout"); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	rc, err := s.Tokens.Parse(refresh, auth.Refresh)
	if err != nil {
		return nil
	}
	if rc.Subject != access.Subject {
		return ErrForbidden
	}
	return s.Tokens.Revoke(rc, "logout")
}

// Authenticate resolves a bearer access token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (*domain.User, *auth.Claims, error) {
	claims, err := s.Tokens.Parse(bearer, auth.Access)
	if err != nil {
		return nil, nil, tokenErr(err)
	}
	u, err := s.Users.ByID(ctx, claims.Subject)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}
	if !u.IsActive {
		return nil, nil, ErrInactive
	}
	return u, claims, nil
}

// VerifyEmail consumes a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	uid, err := s.consume(verifyTokenPrefix, token)
	if err != nil {
		return err
	}
	if err := s.Users.MarkVerified(ctx, uid); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	s.log.Info().Str("user_id", uid).Msg("email.verified")
	return nil
}

// ResendVerification mails a fresh verification link at most once per
// five minutes per user. Verified users are left alone.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return nil
	}
	first, err := s.KV.SetNX(verifyRatePrefix+u.ID, []byte("1"), mailRateWindow)
	if err != nil {
		return err
	}
	if !first {
		return ErrRateLimited
	}
	return s.sendVerification(ctx, u)
}

func (s *AuthService) sendVerification(ctx context.Context, u *domain.User) error {
	token := uuid.NewString()
	if err := s.KV.Set(verifyTokenPrefix+token, []byte(u.ID), verifyTokenTTL); err != nil {
		return err
	}
	_, _ = s.KV.SetNX(verifyRatePrefix+u.ID, []byte("1"), mailRateWindow)
	msg, err := s.Compose.Verification(*u, token)
	if err != nil {
		return err
	}
	return s.Mail.Send(ctx, msg)
}

// RequestPasswordReset mails a reset link. Unknown addresses and repeated
// requests within five minutes succeed silently so the response does not
// reveal which emails are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email, ok := validate.Email(email)
	if !ok {
		return invalid("email is not valid")
	}
	first, err := s.KV.SetNX(resetRatePrefix+email, []byte("1"), mailRateWindow)
	if err != nil {
		return err
	}
	if !first {
		s.log.Warn().Str("email", email).Msg("password_reset.throttled")
		return nil
	}
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, repos.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token := uuid.NewString()
	if err := s.KV.Set(resetTokenPrefix+token, []byte(u.ID), resetTokenTTL); err != nil {
		return err
	}
	msg, err := s.Compose.PasswordReset(*u, token)
	if err != nil {
		return err
	}
	return s.Mail.Send(ctx, msg)
}

// ResetPassword consumes a reset token, sets the new password and revokes
// every outstanding token of the user.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if !validate.Password(password) {
		return invalid("password does not meet the requirements")
	}
	uid, err := s.consume(resetTokenPrefix, token)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, uid, password); err != nil {
		return err
	}
	n, err := s.Tokens.RevokeAll(uid, "password_reset")
	if err != nil {
		return err
	}
	s.log.Info().Str("user_id", uid).Int("revoked", n).Msg("password.reset")
	return nil
}

// ChangePassword verifies the current password, sets the new one and
// revokes every outstanding token, forcing a fresh login.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(current)) != nil {
		return ErrBadCreds
	}
	if !validate.Password(next) {
		return invalid("password does not meet the requirements")
	}
	if current == next {
		return invalid("new password must differ from the current one")
	}
	if err := s.setPassword(ctx, userID, next); err != nil {
		return err
	}
	_, err = s.Tokens.RevokeAll(userID, "password_change")
	return err
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, userID, string(hash))
}

func (s *AuthService) consume(prefix, token string) (string, error) {
	if _, ok := validate.ID(token); !ok {
		return "", ErrInvalidToken
	}
	raw, err := s.KV.Get(prefix + token)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", ErrInvalidToken
	}
	if err := s.KV.Delete(prefix + token); err != nil {
		return "", err
	}
	return string(raw), nil
}

// Profile returns the user with a resolvable picture URL.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.ProfilePicture != "" && s.Media != nil {
		if url, err := s.Media.URL(ctx, u.ProfilePicture); err == nil {
			u.ProfilePictureURL = url
		}
	}
	return u, nil
}

type ProfileInput struct {
	Username  string `json:"username" validate:"required,min=2,max=64"`
	FirstName string `json:"first_name" validate:"max=128"`
	LastName  string `json:"last_name" validate:"max=128"`
	Phone     string `json:"phone_number" validate:"omitempty,phone"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u := &domain.User{ID: userID, Username: in.Username, FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone}
	if err := s.Users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// SetProfilePicture stores an uploaded image and points the profile at it.
func (s *AuthService) SetProfilePicture(ctx context.Context, userID string, r io.Reader) (*domain.User, error) {
	if s.Media == nil {
		return nil, errors.New("media storage is not configured")
	}
	img, err := media.ReadImage(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	key, err := media.Save(ctx, s.Media, "profiles", userID, img)
	if err != nil {
		return nil, err
	}
	if err := s.Users.SetProfilePicture(ctx, userID, key); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// CreateAdmin creates a verified staff account.
func (s *AuthService) CreateAdmin(ctx context.Context, email, username, password string) (*domain.User, error) {
	email, ok := validate.Email(email)
	if !ok {
		return nil, invalid("email is not valid")
	}
	if !validate.Password(password) {
		return nil, invalid("password does not meet the requirements")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Email: email, Username: username, Hash: string(hash), IsActive: true, IsVerified: true, IsStaff: true}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Users.List(ctx)
}

// SetUserActive enables or disables an account. Disabling also revokes
// the user's tokens.
func (s *AuthService) SetUserActive(ctx context.Context, actorID, userID string, active bool) error {
	if actorID == userID && !active {
		return ErrForbidden
	}
	if err := s.Users.SetActive(ctx, userID, active); err != nil {
		return err
	}
	if !active {
		_, err := s.Tokens.RevokeAll(userID, "disabled")
		return err
	}
	return nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *AuthService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrForbidden
	}
	if err := s.Users.Delete(ctx, userID); err != nil {
		return err
	}
	_, err := s.Tokens.RevokeAll(userID, "deleted")
	return err
}

func tokenErr(err error) error {
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrRevoked) || errors.Is(err, auth.ErrWrongType) {
		return ErrInvalidToken
	}
	return err
}
