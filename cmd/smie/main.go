package main

import (
	"fmt"
	"os"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
