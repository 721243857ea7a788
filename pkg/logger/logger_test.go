package logger

import (
	"testing"

	gormlogger "gorm.io/gorm/logger"

	"csm-matcher/config"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format=%s: NewLogger 应成功: %v", format, err)
		}
		l.Debug("测试日志")
	}

	if _, err := NewLogger(&config.LogConfig{Level: "verbose"}); err == nil {
		t.Error("无效日志级别应报错")
	}
}

func TestGormLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"debug": gormlogger.Info,
		"info":  gormlogger.Warn,
		"warn":  gormlogger.Warn,
		"error": gormlogger.Error,
	}
	for in, want := range cases {
		if got := GormLevel(in); got != want {
			t.Errorf("GormLevel(%q) 期望 %v，实际 %v", in, want, got)
		}
	}
}
