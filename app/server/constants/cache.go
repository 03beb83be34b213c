package constants

const (
	CacheKeySessionRevoked = "portal:session:revoked:%s" // %s -> username
)

const (
	CacheExpireSessionRevoked = AuthTokenDuration // 超过令牌有效期后旧令牌已自然失效
)
