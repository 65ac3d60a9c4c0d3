package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pario-ai/scoregate/pkg/models"
)

type statusBody struct {
	Health string `json:"status"`
	models.Status
	Timestamp time.Time `json:"timestamp"`
}

func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show quota, queue and cache status of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(strings.TrimRight(addr, "/") + "/v1/status")
			if err != nil {
				return fmt.Errorf("fetch status: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetch status: unexpected status %s", resp.Status)
			}

			var body statusBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}

			fmt.Printf("Status: %s (tiers: %s)\n\n", body.Health, joinProviders(body.Tiers))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tUSED\tPENDING\tLIMIT\tREMAINING\tRESETS")
			for _, q := range body.Quota {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n",
					q.Provider, q.Used, q.Pending, q.Limit, q.Remaining, humanize.Time(q.ResetAt))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\nQueue: %d waiting, %d/%d in flight, %s completed\n",
				body.Queue.Depth, body.Queue.InFlight, body.Queue.MaxConcurrent,
				humanize.Comma(body.Queue.Completed))
			fmt.Printf("Cache: %d/%d entries, %s hits, %s misses, %s evictions\n",
				body.Cache.Entries, body.Cache.Capacity,
				humanize.Comma(body.Cache.Hits), humanize.Comma(body.Cache.Misses),
				humanize.Comma(body.Cache.Evictions))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "server base URL")
	return cmd
}

func joinProviders(ps []models.Provider) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, " > ")
}
