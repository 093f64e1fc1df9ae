// Command admin runs one operator command against the cliquefs database.
//
//	admin [-d dsn] [-c config.json] <command> [args...]
//
// Server configuration flags are accepted and resolved exactly as for the
// server; everything else is the command line. Run "admin help" for the list
// of commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/cliquefs/internal/admin"
	"github.com/dmitrijs2005/cliquefs/internal/flagx"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
)

func main() {
	_, args := flagx.SplitArgs(os.Args[1:], config.FlagNames())

	if len(args) == 0 || args[0] == "help" {
		_ = admin.New(nil, os.Stdout).Run(context.Background(), args)
		return
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, slog.LevelWarn)

	rt, err := server.NewRuntime(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = admin.New(admin.NewRuntimeBackend(rt), os.Stdout).Run(ctx, args)
	if cerr := rt.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, admin.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
