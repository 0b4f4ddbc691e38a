package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newWaitCommand() *cobra.Command {
	var targetURL string
	var timeout time.Duration
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Poll the readiness endpoint until the API answers",
		Long: `Polls the readiness URL until it returns HTTP 200 or the timeout
expires. Exits non-zero on timeout so it can gate deploy scripts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: interval}

			waited, err := waitForReady(cmd.Context(), client, targetURL, interval, timeout)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ready after %s\n", waited.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetURL, "url", "http://localhost:8080/ready",
		"Readiness endpoint to poll")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second,
		"Give up after this long")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second,
		"Delay between polls")

	return cmd
}

// waitForReady polls url until it returns 200, the timeout expires, or the
// context is canceled. Returns how long readiness took.
func waitForReady(ctx context.Context, client *http.Client, url string, interval, timeout time.Duration) (time.Duration, error) {
	deadline := time.Now().Add(timeout)
	start := time.Now()

	for {
		if ok := probe(ctx, client, url); ok {
			return time.Since(start), nil
		}

		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%s not ready after %s", url, timeout)
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// probe performs one readiness check. Connection errors and non-200
// statuses both count as not ready.
func probe(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}
