// Command permstore manages persistent filesystem grants.
package main

import (
	"os"

	"github.com/reglet-dev/permstore/cmd/permstore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
