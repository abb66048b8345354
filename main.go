package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/blacktop/squadpost/cmd"
	"github.com/blacktop/squadpost/internal/logutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if !cmd.Reported(err) {
			logutil.Errorf("%v", err)
		}
		stop()
		os.Exit(1)
	}
}
