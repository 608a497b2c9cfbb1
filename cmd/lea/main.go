// Command lea runs a directory of SQL scripts as a dependency-ordered,
// write-audit-publish pipeline against a warehouse.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lea",
		Short: "Run a DAG of SQL scripts as a write-audit-publish pipeline",
	}
	root.AddCommand(newRunCmd())
	return root
}
