package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pior/heapd"
	"github.com/pior/heapd/wire"
)

func init() {
	rootCmd.AddCommand(newShellCmd())
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Send protocol lines interactively",
		Long: `The shell command reads protocol lines from stdin and prints each reply.
Lines are routed to the server owning their first argument.

Example:
  > ALLOC age 4
  OK
  > WRITE age 0 HgAAAA==
  OK
  > READ age 0 4
  OK HgAAAA==`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := heapd.NewClient(heapd.NewStaticServers(servers...), heapd.Config{})
			if err != nil {
				return err
			}
			defer client.Close()
			return runShell(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runShell(ctx context.Context, client *heapd.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "help":
			printShellHelp(out)
			continue
		case "quit":
			return nil
		}

		req, err := wire.ParseRequest([]byte(line))
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		start := time.Now()
		resp, err := doWithTimeout(ctx, client, req)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			if errors.Is(err, heapd.ErrClientClosed) {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%s (took %v)\n", resp, time.Since(start).Round(time.Microsecond))

		if req.Command == wire.CmdExit {
			return nil
		}
	}

	return scanner.Err()
}

func doWithTimeout(ctx context.Context, client *heapd.Client, req *wire.Request) (*wire.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return client.Do(ctx, req)
}

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  ALLOC <name> <size>            - Create a zero-filled allocation")
	fmt.Fprintln(out, "  WRITE <name> <offset> <base64> - Copy bytes into an allocation")
	fmt.Fprintln(out, "  READ <name> <offset> <length>  - Read bytes as base64")
	fmt.Fprintln(out, "  FREE <name>                    - Release an allocation")
	fmt.Fprintln(out, "  LIST                           - List allocations on the first server")
	fmt.Fprintln(out, "  EXIT                           - End the session and quit")
	fmt.Fprintln(out, "  quit                           - Leave the shell")
}
