package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/DRSN-tech/product-verifier/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd(cli.LoadFromEnv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "imgmatch:", err)
		os.Exit(1)
	}
}
