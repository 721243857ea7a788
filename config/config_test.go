package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("MATCHER_AUTH_JWT_SECRET", "test-secret-key-for-unit-testing")
	t.Setenv("MATCHER_SOLVER_COMMAND", "/usr/local/bin/match-solver")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("matcher:\n  max_preference: 7\n"), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Matcher.MaxPreference != 7 {
		t.Errorf("期望 max_preference=7，实际=%d", cfg.Matcher.MaxPreference)
	}
	if cfg.Solver.Command != "/usr/local/bin/match-solver" {
		t.Errorf("环境变量未生效: %q", cfg.Solver.Command)
	}
	if cfg.Solver.Timeout != 30*time.Second {
		t.Errorf("期望默认 solver.timeout=30s，实际=%v", cfg.Solver.Timeout)
	}
	if cfg.Matcher.IntervalMinutes != 30 {
		t.Errorf("期望默认 interval_minutes=30，实际=%d", cfg.Matcher.IntervalMinutes)
	}
}

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080},
		Auth:    AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
		Matcher: MatcherConfig{Timezone: "UTC", MaxPreference: 5, DefaultMinMentors: 1, DefaultMaxMentors: 1, IntervalMinutes: 30},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	cases := map[string]func(c *Config){
		"短密钥":     func(c *Config) { c.Auth.JWTSecret = "short" },
		"端口越界":    func(c *Config) { c.Server.Port = 70000 },
		"时区无效":    func(c *Config) { c.Matcher.Timezone = "Mars/Base" },
		"偏好上限无效":  func(c *Config) { c.Matcher.MaxPreference = 0 },
		"人数上下限倒置": func(c *Config) { c.Matcher.DefaultMinMentors = 3 },
		"限流参数无效":  func(c *Config) { c.RateLimit = RateLimitConfig{Enabled: true} },
	}
	for name, mutate := range cases {
		c := validConfig()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: 期望校验失败", name)
		}
	}
}
