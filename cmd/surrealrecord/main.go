// Command surrealrecord reads, lists and saves content elements.
package main

import (
	"os"

	"github.com/surrealdb/surrealrecord/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
