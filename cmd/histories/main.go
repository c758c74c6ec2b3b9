// Command histories stores and serves a log of recent history records.
package main

import (
	"context"
	"os"

	"github.com/roach88/histories/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
