// Package sessions 记录会话吊销时间。令牌本身无状态，修改密码或删除账户后，
// 在此之前签发的令牌需要失效。
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"
	"toolbox-portal/app/server/constants"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Revoker struct {
	rdb *redis.Client // 为 nil 时不做任何事
	l   *zap.Logger
	now func() time.Time
}

func NewRevoker(rdb *redis.Client, l *zap.Logger) *Revoker {
	if l == nil {
		l = zap.NewNop()
	}
	return &Revoker{rdb: rdb, l: l, now: time.Now}
}

func (r *Revoker) Enabled() bool {
	return r != nil && r.rdb != nil
}

// Revoke 使该用户此前签发的所有令牌失效
func (r *Revoker) Revoke(ctx context.Context, username string) error {
	if !r.Enabled() {
		return nil
	}

	if err := r.rdb.Set(ctx, cacheKey(username), r.now().Unix(), constants.CacheExpireSessionRevoked).Err(); err != nil {
		r.l.Error("failed to revoke sessions", zap.String("username", username), zap.Error(err))
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// Revoked 判断 issuedAt 是否早于最近一次吊销；查询失败时记录日志并视为未吊销
func (r *Revoker) Revoked(ctx context.Context, username string, issuedAt time.Time) bool {
	if !r.Enabled() {
		return false
	}

	revokedAt, err := r.rdb.Get(ctx, cacheKey(username)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.l.Error("failed to query session revocation", zap.String("username", username), zap.Error(err))
		}
		return false
	}

	return issuedAt.Unix() < revokedAt
}

func cacheKey(username string) string {
	return fmt.Sprintf(constants.CacheKeySessionRevoked, username)
}
