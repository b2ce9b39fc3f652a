package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pior/heapd"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live allocations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, client *heapd.Client) error {
				return runList(ctx, client, cmd.OutOrStdout())
			})
		},
	}
}

func runList(ctx context.Context, client *heapd.Client, out io.Writer) error {
	allocs, err := client.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVER\tNAME\tSIZE")
	for _, a := range allocs {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", a.Server, a.Name, a.Size)
	}
	return tw.Flush()
}
