package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	apperrors "github.com/jwalitptl/frontdesk-api/pkg/errors"
)

// Claims carried by front-desk access tokens. The subject is the user ID.
type Claims struct {
	Name string     `json:"name"`
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTService validates HS256 bearer tokens issued by the hospital's identity service.
type JWTService interface {
	ValidateToken(token string) (model.Caller, error)
}

type jwtService struct {
	secret []byte
	issuer string
}

func NewJWTService(secret, issuer string) JWTService {
	return &jwtService{secret: []byte(secret), issuer: issuer}
}

func (s *jwtService) ValidateToken(tokenString string) (model.Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return model.Caller{}, apperrors.Unauthorized(err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return model.Caller{}, apperrors.Unauthorized(fmt.Errorf("invalid subject %q", claims.Subject))
	}
	if !claims.Role.Valid() {
		return model.Caller{}, apperrors.Unauthorized(fmt.Errorf("invalid role %q", claims.Role))
	}

	return model.Caller{UserID: userID, Name: claims.Name, Role: claims.Role}, nil
}

// SignToken mints a token for caller. Production tokens come from the identity
// service; this is for tooling and tests.
func SignToken(secret, issuer string, caller model.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: caller.Name,
		Role: caller.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(caller.UserID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Require returns the caller on ctx if it holds one of roles.
func Require(ctx context.Context, roles ...model.Role) (model.Caller, error) {
	caller, ok := model.CallerFrom(ctx)
	if !ok {
		return model.Caller{}, apperrors.Unauthorized(errors.New("no caller on context"))
	}
	if len(roles) > 0 && !slices.Contains(roles, caller.Role) {
		return model.Caller{}, apperrors.NewForbidden(fmt.Sprintf("role %s may not perform this operation", caller.Role))
	}
	return caller, nil
}
