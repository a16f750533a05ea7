package token

import (
	"context"
	"errors"
	"time"

	"lending-service/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims: то, что middleware кладёт в контекст запроса
type Claims struct {
	UserID uuid.UUID
	Role   service.Role
	Exp    time.Time
}

// HSVerifier проверяет access-токены, выпущенные сервисом аутентификации (HS256).
type HSVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewHSVerifier(secret, issuer, audience string) *HSVerifier {
	return &HSVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

type customClaims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignAccess нужен для локальной разработки и тестов
func (p *HSVerifier) SignAccess(ctx context.Context, sub uuid.UUID, role service.Role, ttl time.Duration) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(ttl)

	claims := customClaims{
		Sub:  sub.String(),
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   sub.String(),
			Audience:  []string{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(p.secret)
	return signed, exp, err
}

func (p *HSVerifier) ParseAndValidateAccess(ctx context.Context, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &customClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithAudience(p.audience), jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	cc, ok := parsed.Claims.(*customClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	uid, err := uuid.Parse(cc.Sub)
	if err != nil {
		return nil, err
	}

	role := service.Role(cc.Role)
	switch role {
	case service.RoleMember, service.RoleAdmin:
	case "":
		// токены без роли: обычные участники
		role = service.RoleMember
	default:
		return nil, errors.New("unknown role")
	}

	out := &Claims{UserID: uid, Role: role}
	if cc.ExpiresAt != nil {
		out.Exp = cc.ExpiresAt.Time
	}
	return out, nil
}
