// Package main provides the studio CLI, which runs the brand-image workflow
// against Gemini without the HTTP server.
//
// Usage:
//
//	studio [flags] <command> [args]
//
// Commands:
//
//	suggest  - Suggest styles for a product image
//	analyze  - Decide whether an article needs a human model
//	generate - Render the top styles and save them to disk
//
// Configuration is read from the environment (and .env when present);
// GEMINI_API_KEY is required.
package main

import (
	"fmt"
	"os"

	"brandstudio/cmd/studio/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
