package main

import (
	"os"

	"github.com/utkarsh5026/parjoin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
