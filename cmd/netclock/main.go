package main

import (
	"fmt"
	"os"

	"github.com/turtacn/netclock/internal/cli"
	"github.com/turtacn/netclock/pkg/logger"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Panic recovered", "panic", r)
			os.Exit(1)
		}
	}()

	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "netclock:", err)
		os.Exit(cli.ExitCode(err))
	}
}

// Personal.AI order the ending
