// Package jwt проверяет токены сессии, выпущенные внешним провайдером идентификации.
//
// Выпуск токенов к ядру не относится; Issue используется только для
// локального запуска и тестов.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается для любого непрошедшего проверку токена.
var ErrInvalidToken = errors.New("invalid token")

// Claims — данные пользователя в токене. Идентификатор пользователя хранится в Subject.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier проверяет подпись и срок действия HS256-токенов.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier создаёт Verifier. ttl используется только в Issue.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// Issue подписывает токен для пользователя userID.
func (v *Verifier) Issue(userID, email string) (string, error) {
	const op = "jwt.Issue"
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Verify разбирает токен и возвращает claims. Токен без Subject считается невалидным.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	const op = "jwt.Verify"
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
