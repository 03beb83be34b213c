package jwt

import (
	"errors"
	"fmt"
	"time"
	"toolbox-portal/app/server/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

type JWT struct {
	key []byte
	now func() time.Time
}

type Identity struct {
	Username string
	IssuedAt time.Time
	Expires  time.Time
}

func New(key string) (*JWT, error) {
	if len(key) == 0 {
		return nil, errors.New("key is empty")
	}

	return &JWT{key: []byte(key), now: time.Now}, nil
}

// WithClock 替换时间来源，测试中使用
func (j *JWT) WithClock(now func() time.Time) *JWT {
	return &JWT{key: j.key, now: now}
}

// Issue 签出一个有效期为 constants.AuthTokenDuration 的令牌
func (j *JWT) Issue(username string) (string, error) {
	if username == "" {
		return "", errors.New("identity is empty")
	}

	now := j.now()

	// 创建声明
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(constants.AuthTokenDuration)),
		ID:        uuid.NewString(),
	}

	// 创建令牌
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// 签名并返回
	return token.SignedString(j.key)
}

// Verify 校验签名与有效期；所有失败都包装为 ErrInvalidToken ，过期额外包装 ErrTokenExpired
func (j *JWT) Verify(tokenString string) (*Identity, error) {
	// 检查是否有效
	if len(tokenString) == 0 {
		return nil, fmt.Errorf("%w: token string is empty", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	// 匹配内容
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	identity := &Identity{
		Username: claims.Subject,
		Expires:  claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}

	return identity, nil
}
