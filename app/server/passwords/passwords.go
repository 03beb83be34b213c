// Package passwords 负责密码哈希。新密码使用 argon2id ；
// 迁移过来的旧账户使用 pbkdf2 格式（pbkdf2:sha256:<iterations>$<salt>$<hex>），仍然可以校验。
package passwords

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/pbkdf2"
)

var ErrUnknownHashFormat = errors.New("unknown password hash format")

const (
	argon2idPrefix = "$argon2id$"
	pbkdf2Prefix   = "pbkdf2:"

	legacyDefaultIterations = 260000 // 旧格式未写明迭代次数时使用
)

func Hash(plain string) (string, error) {
	h, err := argon2id.CreateHash(plain, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

// Verify 校验密码；无法识别的哈希格式返回 ErrUnknownHashFormat
func Verify(plain string, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argon2idPrefix):
		match, err := argon2id.ComparePasswordAndHash(plain, encoded)
		if err != nil {
			return false, fmt.Errorf("check argon2id hash: %w", err)
		}
		return match, nil
	case strings.HasPrefix(encoded, pbkdf2Prefix):
		return verifyPBKDF2(plain, encoded)
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsRehash 旧格式的哈希在下次登录成功后应当升级
func NeedsRehash(encoded string) bool {
	return !strings.HasPrefix(encoded, argon2idPrefix)
}

func verifyPBKDF2(plain string, encoded string) (bool, error) {
	// pbkdf2:sha256:600000$salt$hex
	method, rest, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, ErrUnknownHashFormat
	}
	salt, want, ok := strings.Cut(rest, "$")
	if !ok {
		return false, ErrUnknownHashFormat
	}

	args := strings.Split(strings.TrimPrefix(method, pbkdf2Prefix), ":")

	var newHash func() hash.Hash
	switch args[0] {
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return false, fmt.Errorf("%w: pbkdf2 digest %q", ErrUnknownHashFormat, args[0])
	}

	iterations := legacyDefaultIterations
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return false, fmt.Errorf("%w: pbkdf2 iterations %q", ErrUnknownHashFormat, args[1])
		}
		iterations = n
	}

	wantBytes, err := hex.DecodeString(want)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnknownHashFormat, err)
	}

	got := pbkdf2.Key([]byte(plain), []byte(salt), iterations, newHash().Size(), newHash)
	return subtle.ConstantTimeCompare(got, wantBytes) == 1, nil
}
