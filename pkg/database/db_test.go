package database

import (
	"testing"

	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"debug": gormlogger.Info,
		"info":  gormlogger.Warn,
		"warn":  gormlogger.Warn,
		"error": gormlogger.Error,
		"":      gormlogger.Warn,
	}
	for in, want := range cases {
		if got := gormLogLevel(in); got != want {
			t.Errorf("gormLogLevel(%q) 期望 %v，实际 %v", in, want, got)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("读取内嵌迁移目录失败: %v", err)
	}
	if len(entries) == 0 || len(entries)%2 != 0 {
		t.Errorf("迁移文件应成对出现（up/down），实际 %d 个", len(entries))
	}
}
