package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pior/heapd"
	"github.com/pior/heapd/b64"
)

var (
	writeText bool
	readRaw   bool
)

func init() {
	write := newWriteCmd()
	write.Flags().BoolVar(&writeText, "text", false, "Treat <data> as literal text instead of base64")
	read := newReadCmd()
	read.Flags().BoolVar(&readRaw, "raw", false, "Print the bytes instead of their base64 encoding")
	rootCmd.AddCommand(write, read)
}

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <name> <offset> <data>",
		Short: "Copy bytes into an allocation",
		Long: `The write command copies bytes into an allocation at an offset.

Example:
  heapctl write age 0 HgAAAA==
  heapctl write greeting 0 hello --text`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, client *heapd.Client) error {
				return runWrite(ctx, client, cmd.OutOrStdout(), args)
			})
		},
	}
}

func runWrite(ctx context.Context, client *heapd.Client, out io.Writer, args []string) error {
	if err := checkArgs(args, 3, "write <name> <offset> <data>"); err != nil {
		return err
	}
	offset, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q", args[1])
	}

	data := []byte(args[2])
	if !writeText {
		data, err = b64.Decode(args[2], b64.Strict)
		if err != nil {
			return fmt.Errorf("invalid base64 data: %w", err)
		}
	}

	if err := client.Write(ctx, args[0], offset, data); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d bytes to %s at %d\n", len(data), args[0], offset)
	return nil
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <name> <offset> <length>",
		Short: "Read bytes from an allocation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, client *heapd.Client) error {
				return runRead(ctx, client, cmd.OutOrStdout(), args)
			})
		},
	}
}

func runRead(ctx context.Context, client *heapd.Client, out io.Writer, args []string) error {
	if err := checkArgs(args, 3, "read <name> <offset> <length>"); err != nil {
		return err
	}
	offset, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q", args[1])
	}
	length, err := strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid length %q", args[2])
	}

	data, err := client.Read(ctx, args[0], offset, length)
	if err != nil {
		return err
	}
	if readRaw {
		_, err = out.Write(data)
		return err
	}
	fmt.Fprintln(out, b64.Encode(data))
	return nil
}
