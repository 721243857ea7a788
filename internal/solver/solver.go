package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"csm-matcher/config"
	"csm-matcher/internal/matcher"
)

var (
	ErrNotConfigured = errors.New("未配置分配求解器")
	ErrTimeout       = errors.New("分配求解器超时")
)

// Solver 外部分配求解器
type Solver interface {
	Solve(ctx context.Context, p *matcher.Problem) (*matcher.Solution, error)
}

// stderrTail 错误信息中保留的 stderr 尾部长度
const stderrTail = 512

// Command 以子进程方式调用求解器：stdin 写入问题 JSON，stdout 读取结果 JSON
type Command struct {
	path    string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

// New 按配置创建求解器；未配置命令时返回的求解器总是报 ErrNotConfigured
func New(cfg *config.SolverConfig, logger *zap.Logger) Solver {
	if cfg.Command == "" {
		return unconfigured{}
	}
	return NewCommand(cfg.Command, cfg.Args, cfg.Timeout, logger)
}

// NewCommand 创建子进程求解器
func NewCommand(path string, args []string, timeout time.Duration, logger *zap.Logger) *Command {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Command{path: path, args: args, timeout: timeout, logger: logger}
}

func (c *Command) Solve(ctx context.Context, p *matcher.Problem) (*matcher.Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	input, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("序列化分配问题失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	c.logger.Info("分配求解器执行结束",
		zap.String("command", c.path),
		zap.Int("mentors", len(p.Mentors)),
		zap.Int("slots", len(p.Slots)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("分配求解器执行失败: %w: %s", runErr, tail(stderr.Bytes()))
	}

	var sol matcher.Solution
	if err := json.Unmarshal(stdout.Bytes(), &sol); err != nil {
		return nil, fmt.Errorf("解析求解结果失败: %w", err)
	}
	if err := p.Check(&sol); err != nil {
		return nil, fmt.Errorf("求解结果无效: %w", err)
	}
	return &sol, nil
}

func tail(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > stderrTail {
		b = b[len(b)-stderrTail:]
	}
	return string(b)
}

type unconfigured struct{}

func (unconfigured) Solve(context.Context, *matcher.Problem) (*matcher.Solution, error) {
	return nil, ErrNotConfigured
}
