package config

type Config struct {
	System struct {
		IsProd        bool     // 是否为生产环境
		Listen        string   // 监听地址
		StoreURL      string   // Postgres 数据库的连接字符串
		StoreKey      string   // 数据库密钥，设置时覆盖连接字符串中的密码
		RedisURL      string   // Redis 连接地址，为空时不启用会话吊销
		AutoMigrate   bool     // 启动时是否自动迁移表结构
		CORSOrigins   []string // 允许跨域的来源
		LockBootstrap bool     // 是否关闭管理员初始化相关的无认证接口
	}
	Security struct {
		SignatureSecretKey   string // 签名密钥，用于产生签名（例如 JWT ），更新会导致旧有会话失效
		AdminDefaultPassword string // 初始管理员密码，仅在创建或重置管理员时读取
	}
}
