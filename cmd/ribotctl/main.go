// Command ribotctl administers a RibotFlow installation: it creates tenants and
// their users, imports tax catalogs, repairs document totals and seeds demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ribotctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
