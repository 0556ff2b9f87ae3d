package main

import (
	"os"

	"github.com/wonny/fundnav/cmd/fundnav/commands"
)

// main is the entry point for the fundnav CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/fundnav [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
