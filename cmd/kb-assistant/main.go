package main

import (
	"fmt"
	"os"

	"github.com/mfenderov/kb-assistant/cmd/kb-assistant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
