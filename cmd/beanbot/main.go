// Package main is the entry point for the beanbot CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/beancount-bot/cmd/beanbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
