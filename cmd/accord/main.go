package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "accord",
		Short:         "Dual-agent cross-review consensus over a single question",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAskCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
