package main

import (
	"github.com/urfave/cli/v2"
)

const (
	configFlagName      = "config"
	stepsFlagName       = "steps"
	courseIDFlagName    = "course-id"
	courseNameFlagName  = "name"
	coordinatorFlagName = "coordinator"
	createdByFlagName   = "created-by"
	userIDFlagName      = "user-id"
	emailFlagName       = "email"
	roleFlagName        = "role"
	tokenFlagName       = "token"
)

var (
	configFlag = &cli.StringFlag{
		Name:    configFlagName,
		Usage:   "配置文件路径，默认查找 ./config/config.yaml",
		EnvVars: []string{"MATCHER_CONFIG"},
	}
	stepsFlag = &cli.IntFlag{
		Name:  stepsFlagName,
		Usage: "回滚的迁移步数",
		Value: 1,
	}
	courseIDFlag = &cli.Int64Flag{
		Name:     courseIDFlagName,
		Usage:    "课程 ID",
		Required: true,
	}
	courseNameFlag = &cli.StringFlag{
		Name:     courseNameFlagName,
		Usage:    "课程名称，如 CS 61A",
		Required: true,
	}
	coordinatorFlag = &cli.StringSliceFlag{
		Name:     coordinatorFlagName,
		Usage:    "协调员邮箱，可重复",
		Required: true,
	}
	createdByFlag = &cli.StringFlag{
		Name:  createdByFlagName,
		Usage: "操作人标识",
		Value: "matcherctl",
	}
	userIDFlag = &cli.StringFlag{
		Name:     userIDFlagName,
		Usage:    "用户 ID",
		Required: true,
	}
	emailFlag = &cli.StringFlag{
		Name:     emailFlagName,
		Usage:    "用户邮箱",
		Required: true,
	}
	roleFlag = &cli.StringFlag{
		Name:  roleFlagName,
		Usage: "角色: admin | member",
		Value: "member",
	}
	tokenFlag = &cli.StringFlag{
		Name:     tokenFlagName,
		Usage:    "待吊销的 Token",
		Required: true,
	}
)
