package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/entrhq/steady/pkg/config"
	"github.com/spf13/cobra"
)

func browsersCmd(flags *cliFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "browsers",
		Short: "List the browser aliases of the capability table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Listing must work without a browser selected, so the file is
			// read directly instead of going through Resolve.
			settings := &config.Settings{}
			if flags.configFile != "" {
				loaded, err := config.LoadFile(flags.configFile)
				if err != nil {
					return err
				}
				settings = loaded
			}

			fmt.Fprintln(stdout, headerStyle.Render("Supported browsers"))
			table := settings.Table()
			for _, alias := range settings.Aliases() {
				fmt.Fprintf(stdout, "  %-18s %s\n", alias, skipStyle.Render(describe(table[alias])))
			}
			return nil
		},
	}
}

// describe renders capabilities as sorted key=value pairs.
func describe(caps map[string]any) string {
	keys := make([]string, 0, len(caps))
	for k := range caps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, caps[k]))
	}
	return strings.Join(parts, " ")
}
