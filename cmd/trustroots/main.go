package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	rootCmd := newRootCmd(&app{loadRoots: loadDefaultRoots})
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
