package utils

import (
	"errors"
	"time"

	"Momentum/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var jwtConf *config.JWTConfig

var ErrInvalidToken = errors.New("invalid token")

// AccountClaims identifies the authenticated game account.
type AccountClaims struct {
	AccountID string `json:"accountId"`
	jwt.RegisteredClaims
}

func SetJWTConfig(cfg *config.JWTConfig) {
	jwtConf = cfg
}

func secret() []byte {
	if jwtConf == nil {
		return []byte("momentum-dev-secret")
	}
	return []byte(jwtConf.Secret)
}

// GenToken issues a signed token for an account.
func GenToken(accountID string) (string, error) {
	expire := 24 * time.Hour
	if jwtConf != nil && jwtConf.ExpireDuration > 0 {
		expire = time.Duration(jwtConf.ExpireDuration) * time.Second
	}
	claims := AccountClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
			Issuer:    "momentum",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ParseToken validates a token and returns its claims.
func ParseToken(tokenString string) (*AccountClaims, error) {
	claims := new(AccountClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
