// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command slsinvoke runs a wrapped demo handler once, outside of Lambda,
// and prints the transaction record it produces.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd, err := newCommand(newViper(), os.Stdout)
	if err != nil {
		os.Exit(1)
	}
	err = cmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}
