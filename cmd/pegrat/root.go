package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pegrat",
	Short: "Parse a text stream against a PEG grammar",
	Long: `pegrat loads a JSON-encoded PEG grammar and an input text, runs it through
the packrat interpreter, and prints the resulting AST.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
