package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "gridcore",
		Short: "Diagnostics for the gridcore concurrency and wire-format library",
	}
	root.AddCommand(newBenchCmd())
	root.AddCommand(newCodecCmd())
	root.AddCommand(newHashCmd())
	root.AddCommand(newNetCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
