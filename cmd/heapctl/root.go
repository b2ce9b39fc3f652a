package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pior/heapd"
)

var (
	// Global flags
	servers []string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Talk to heapd servers",
	Long: `heapctl runs allocation commands against one or more heapd servers.
Names are spread over the servers the same way the Go client does it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&servers, "server", "s", []string{"127.0.0.1:4000"}, "heapd server address (repeatable)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "Per-command timeout")
}

func execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withClient runs fn with a client for the configured servers and a context
// bounded by --timeout.
func withClient(ctx context.Context, fn func(ctx context.Context, client *heapd.Client) error) error {
	client, err := heapd.NewClient(heapd.NewStaticServers(servers...), heapd.Config{})
	if err != nil {
		return err
	}
	defer client.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, client)
}

// checkArgs validates that the correct number of arguments were provided
func checkArgs(args []string, expected int, usage string) error {
	if len(args) != expected {
		return fmt.Errorf("expected %d argument(s), got %d\nUsage: %s", expected, len(args), usage)
	}
	return nil
}
