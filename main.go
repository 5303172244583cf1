package main

import (
	"os"

	"github.com/kirvlasenkov/subreddit-insights/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
