package main

import (
	"os"

	"github.com/jonathanhorst/obsidian-media-summarizer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
