package main

import (
	"fmt"
	"os"
	"time"

	"github.com/midnightnow/hardcard-smart-github-hub/cmd"

	"github.com/getsentry/sentry-go"
)

func main() {
	// Crash reporting is opt-in for a client tool: without SENTRY_DSN the
	// process reports nothing.
	if os.Getenv("SENTRY_DSN") != "" {
		err := sentry.Init(sentry.ClientOptions{
			Release:    "smarthub@" + cmd.Version,
			SampleRate: 0.1,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "sentry.Init: %v", err)
		}
		// Flush buffered events before the program terminates.
		defer sentry.Flush(2 * time.Second)
	}

	cmd.Execute()
}
