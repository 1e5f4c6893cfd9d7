package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity quién opera y sobre qué tenant. El tenant acota cada lectura y escritura del libro.
type Identity struct {
	UserID   string
	TenantID string
	Role     string // "admin" | "bodeguero" | "vendedor"
}

// Claims claims estándar más tenant y rol; el usuario viaja en sub.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// ErrEmptySecret se devuelve si no hay secreto configurado.
var ErrEmptySecret = errors.New("jwt: secret vacío")

// Generate firma un token HS256 para la identidad con vigencia ttl.
func Generate(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: id.TenantID,
		Role:     id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y expiración y devuelve la identidad del token.
func Parse(secret, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, ErrEmptySecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return Identity{}, fmt.Errorf("jwt: sub y tenant_id son requeridos")
	}
	return Identity{UserID: claims.Subject, TenantID: claims.TenantID, Role: claims.Role}, nil
}
