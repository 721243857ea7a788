package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var Version = "dev"

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "matcherctl"
	app.Usage = "导师时段匹配服务运维命令行"
	app.Flags = []cli.Flag{configFlag}
	app.Commands = append(
		app.Commands,
		&migrateCommand,
		&courseCommand,
		&tokenCommand,
		&closeExpiredCommand,
	)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
