package main

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/s3drop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
