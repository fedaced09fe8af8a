package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/logger"
	wrap "github.com/Temutjin2k/droply/pkg/logger/wrapper"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService verifies identity provider tokens. Issue exists for the seed
// tool and tests; in production tokens come from the identity provider.
type TokenService struct {
	secret    []byte
	AccessTTL time.Duration
	now       func() time.Time
	log       logger.Logger
}

func NewTokenService(secret string, accessTTL time.Duration, log logger.Logger) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		AccessTTL: accessTTL,
		now:       time.Now,
		log:       log,
	}
}

// Issue signs an HS256 access token for user.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (string, error) {
	ctx = wrap.WithAction(ctx, "issue_token")
	if user == nil || user.ID == "" {
		return "", wrap.Error(ctx, errors.New("user is empty"))
	}

	issuedAt := s.now().UTC()
	claims := models.CustomClaims{
		UserID:    user.ID,
		Name:      user.Name,
		TokenType: models.AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.AccessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", wrap.Error(ctx, fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}

// Validate parses token and returns its claims if the signature and expiry hold.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.CustomClaims, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	claims := &models.CustomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, wrap.Error(ctx, ErrExpToken)
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}
	if !parsed.Valid {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	if claims.TokenType != models.AccessToken {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.TokenType))
	}
	if claims.UserID == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: missing 'user_id' claim", ErrInvalidToken))
	}

	return claims, nil
}

// RoleCheck validates token and returns the caller it identifies.
func (s *TokenService) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:   claims.UserID,
		Name: claims.Name,
	}, nil
}
