// Command kbase is a local document knowledge base.
package main

import (
	"os"

	"github.com/custodia-labs/kbase/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
