package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/winslow-house/advising-api/internal/models"
	appErrors "github.com/winslow-house/advising-api/pkg/errors"
	"github.com/winslow-house/advising-api/pkg/mailer"
)

type authCodeStore interface {
	Store(ctx context.Context, email, hash string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// AuthConfig defines configuration for the verification-code login.
type AuthConfig struct {
	AdminEmails []string
	CodeTTL     time.Duration
	CodeLength  int
	JWTSecret   string
	JWTExpiry   time.Duration
	Issuer      string
}

// RequestCodeRequest asks for a login code.
type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest exchanges a code for a session token.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Email       string    `json:"email"`
}

// AuthService implements passwordless admin login: allow-listed emails
// receive a short-lived verification code, exchanged for a JWT. Only a
// bcrypt hash of the code is ever stored.
type AuthService struct {
	codes     authCodeStore
	sender    mailer.Sender
	config    AuthConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(codes authCodeStore, sender mailer.Sender, config AuthConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CodeLength <= 0 {
		config.CodeLength = 6
	}
	if config.CodeTTL <= 0 {
		config.CodeTTL = 10 * time.Minute
	}
	return &AuthService{codes: codes, sender: sender, config: config, validator: validate, logger: logger}
}

// RequestCode generates a verification code for an allow-listed admin
// and mails it. The code itself never leaves this method unencrypted
// except inside the email.
func (s *AuthService) RequestCode(ctx context.Context, req RequestCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if !s.isAdmin(req.Email) {
		return appErrors.Clone(appErrors.ErrForbidden, "email is not an authorized administrator")
	}

	code, err := s.generateCode()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate verification code")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash verification code")
	}

	if err := s.codes.Store(ctx, req.Email, string(hash), s.config.CodeTTL); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store verification code")
	}

	msg := mailer.Message{
		To:      []string{req.Email},
		Subject: "Your advising portal login code",
		Body: fmt.Sprintf("Your verification code is %s.\n\nIt expires in %d minutes.",
			code, int(s.config.CodeTTL.Minutes())),
	}
	if err := s.sender.Send(msg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send verification code")
	}

	s.logger.Info("login_code_sent", zap.String("email", req.Email))
	return nil
}

// VerifyCode checks a pending code and issues a session token.
func (s *AuthService) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if !s.isAdmin(req.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "email is not an authorized administrator")
	}

	hash, err := s.codes.Get(ctx, req.Email)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "verification code expired or was never requested")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read verification code")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(req.Code))); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid verification code")
	}

	if err := s.codes.Delete(ctx, req.Email); err != nil {
		s.logger.Warn("failed to delete used verification code", zap.Error(err))
	}

	token, expiresAt, err := s.generateToken(req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	s.logger.Info("admin_logged_in", zap.String("email", req.Email))
	return &LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		IssuedAt:    time.Now().UTC(),
		Email:       req.Email,
	}, nil
}

// ValidateToken parses and validates a session token.
func (s *AuthService) ValidateToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) isAdmin(email string) bool {
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, admin := range s.config.AdminEmails {
		if strings.ToLower(strings.TrimSpace(admin)) == needle {
			return true
		}
	}
	return false
}

func (s *AuthService) generateCode() (string, error) {
	var b strings.Builder
	for i := 0; i < s.config.CodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", n.Int64())
	}
	return b.String(), nil
}

func (s *AuthService) generateToken(email string) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.JWTExpiry)
	claims := &models.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
