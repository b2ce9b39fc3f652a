package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pior/heapd"
)

func init() {
	rootCmd.AddCommand(newAllocCmd(), newFreeCmd())
}

func newAllocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alloc <name> <size>",
		Short: "Create a zero-filled allocation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, client *heapd.Client) error {
				return runAlloc(ctx, client, cmd.OutOrStdout(), args)
			})
		},
	}
}

func runAlloc(ctx context.Context, client *heapd.Client, out io.Writer, args []string) error {
	if err := checkArgs(args, 2, "alloc <name> <size>"); err != nil {
		return err
	}
	size, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid size %q", args[1])
	}

	if err := client.Alloc(ctx, args[0], size); err != nil {
		return err
	}
	fmt.Fprintf(out, "allocated %s (%d bytes)\n", args[0], size)
	return nil
}

func newFreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "free <name>",
		Short: "Release an allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, client *heapd.Client) error {
				return runFree(ctx, client, cmd.OutOrStdout(), args)
			})
		},
	}
}

func runFree(ctx context.Context, client *heapd.Client, out io.Writer, args []string) error {
	if err := checkArgs(args, 1, "free <name>"); err != nil {
		return err
	}
	if err := client.Free(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "freed %s\n", args[0])
	return nil
}
