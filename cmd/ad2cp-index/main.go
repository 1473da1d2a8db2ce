// Command ad2cp-index scans AD2CP captures and builds record indexes.
package main

import (
	"fmt"
	"os"

	"github.com/DocOtak/ad2cp-index/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
