package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pvaldes/mention-bot/pkg/config"
)

func newStatusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running bot's status endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				addr = cfg.ListenAddr
			}
			if strings.HasPrefix(addr, ":") {
				addr = "localhost" + addr
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + addr + "/api/status")
			if err != nil {
				return fmt.Errorf("is the bot running? %w", err)
			}
			defer resp.Body.Close()

			var status struct {
				TrackedPosts int    `json:"tracked_posts"`
				HandledPosts int    `json:"handled_posts"`
				SlotActive   bool   `json:"slot_active"`
				ActiveID     string `json:"active_id"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tracked posts: %d\n", status.TrackedPosts)
			fmt.Fprintf(out, "Handled posts: %d\n", status.HandledPosts)
			if status.SlotActive {
				fmt.Fprintf(out, "Active post:   %s\n", status.ActiveID)
			} else {
				fmt.Fprintln(out, "Active post:   none")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "bot address (defaults to LISTEN_ADDR)")
	return cmd
}
