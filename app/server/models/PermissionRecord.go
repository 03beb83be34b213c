package models

// PermissionRecord 只用于建表；读写时按列名动态处理，以便新增功能模块时只需要加列
type PermissionRecord struct {
	ID       uint   `gorm:"column:id;primaryKey"`
	Username string `gorm:"column:username;uniqueIndex;not null"` // 对应 users.username

	// 功能模块开关，NULL 视为允许
	YoutubeDownloader *bool `gorm:"column:youtube_downloader"`
	WhisperAI         *bool `gorm:"column:whisper_ai"`
	Translator        *bool `gorm:"column:translator"`
	Summarizer        *bool `gorm:"column:summarizer"`
	SnakeGame         *bool `gorm:"column:snake_game"`
	Spaceship         *bool `gorm:"column:spaceship"`
	Module1           *bool `gorm:"column:module_1"`
	Module2           *bool `gorm:"column:module_2"`
	Module3           *bool `gorm:"column:module_3"`
	Module4           *bool `gorm:"column:module_4"`
}

func (PermissionRecord) TableName() string {
	return "user_permissions"
}

// PermissionModuleColumns 是 user_permissions 中所有功能模块列，顺序与结构体一致
var PermissionModuleColumns = []string{
	"youtube_downloader",
	"whisper_ai",
	"translator",
	"summarizer",
	"snake_game",
	"spaceship",
	"module_1",
	"module_2",
	"module_3",
	"module_4",
}
