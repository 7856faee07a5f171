package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cashcardctl",
		Short:         "Provisioning helpers for the cash card API",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(checkPrincipalsCmd())
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(jwksCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}
