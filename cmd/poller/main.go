package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// Options holds global flags for all commands.
type Options struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand creates the root command for the poller.
func newRootCommand() *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "sabeo-poller",
		Short: "At-least-once driver for the daily challenge cycle",
		Long: `sabeo-poller calls the orchestration endpoints of a running server.
The endpoints are idempotent, so overlapping pollers and retries are safe;
the server elects a single winner for the daily reveal.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ServerURL, "server", "http://localhost:8080", "base URL of the server")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("SERVICE_TOKEN"), "service token (defaults to SERVICE_TOKEN)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")

	cmd.AddCommand(newScheduleCommand(opts))
	cmd.AddCommand(newTriggerCommand(opts))
	cmd.AddCommand(newRunCommand(opts))

	return cmd
}

// newScheduleCommand creates the schedule command, one schedule poll.
func newScheduleCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Ensure today's reveal instant is decided",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := post(opts, "/api/schedule")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, body)
			return nil
		},
	}
}

// newTriggerCommand creates the trigger command, one reveal poll.
func newTriggerCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Fire the reveal if its instant has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := post(opts, "/api/trigger")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, body)
			return nil
		},
	}
}

// newRunCommand creates the run command, the continuous polling loop.
func newRunCommand(opts *Options) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll schedule and trigger continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Printf("Polling %s every %s", opts.ServerURL, interval)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			poll(opts)
			for {
				select {
				case <-ticker.C:
					poll(opts)
				case <-quit:
					log.Println("Poller stopping")
					return nil
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between polls")

	return cmd
}

// poll runs one schedule+trigger cycle. Failures are logged and retried on
// the next tick, never fatal.
func poll(opts *Options) {
	for _, path := range []string{"/api/schedule", "/api/trigger"} {
		status, body, err := post(opts, path)
		if err != nil {
			log.Printf("POST %s failed: %v", path, err)
			continue
		}
		log.Printf("POST %s: %d %s", path, status, body)
	}
}

func post(opts *Options, path string) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, opts.ServerURL+path, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Authorization", "Bearer "+opts.Token)

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(body), nil
}
