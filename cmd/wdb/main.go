// Package main is the entry point for the wdb command.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZebulonRouseFrantzich/wdb/cmd/wdb/commands"
	"github.com/ZebulonRouseFrantzich/wdb/internal/app"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, newApplication))
}

func newApplication(ctx context.Context, opts app.Options) (commands.Application, error) {
	a, err := app.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory commands.Factory) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New(factory)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	return 0
}
