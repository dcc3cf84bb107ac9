package main

import (
	"os"

	"github.com/gadzhilaev/smile-ai-tg/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Cli(version); err != nil {
		os.Exit(1)
	}
}
