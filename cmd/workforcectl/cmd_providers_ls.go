package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/provider"
)

var providersListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List providers",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		infos, err := FetchProviders(ctx, &configData)
		if err != nil {
			log.Fatal(err)
		}

		printProviders(os.Stdout, infos)
	},
}

func printProviders(w io.Writer, infos []provider.Info) {
	count := len(infos)
	pad := fmt.Sprint(len(fmt.Sprint(count)))

	for index, info := range infos {
		state := "available"
		if !info.Available {
			state = "unavailable"
		}

		fmt.Fprintf(w, "%"+pad+"d: %s (%s)\n", index+1, info.Id, state)

		if len(info.Attributes) > 0 {
			fmt.Fprintln(w, "  Attributes")
			for _, key := range slices.Sorted(maps.Keys(info.Attributes)) {
				fmt.Fprintf(w, "    %s: %s\n", key, info.Attributes[key])
			}
		}
		fmt.Fprintln(w)
	}
}

func init() {
	providersCmd.AddCommand(providersListCmd)
}
