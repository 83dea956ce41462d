package main

import "github.com/spf13/cobra"

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Commands to inspect worker providers",
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
