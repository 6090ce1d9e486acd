// Package main provides the entry point for the memory-mcp CLI.
package main

import (
	"os"

	"github.com/XingxingLi2017/memory-mcp/cmd/memory-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
