package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/Sternrassler/repolist-client/pkg/pagination"
	"github.com/spf13/cobra"
)

func newDumpCmd(a *app) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Walk the listing and print repositories as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 0 {
				return fmt.Errorf("--pages must not be negative")
			}

			githubClient, cleanup, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			_, err = dump(cmd.Context(), githubClient, pages, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch (0 for all)")
	return cmd
}

// dump writes every repository of up to maxPages pages to w, one JSON object
// per line, and returns the number of repositories written.
func dump(ctx context.Context, fetcher pagination.PageFetcher, maxPages int, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	written := 0

	_, err := pagination.Walk(ctx, fetcher, maxPages, func(_ int, page *model.Page) error {
		for _, repo := range page.Repositories {
			if err := enc.Encode(repo); err != nil {
				return fmt.Errorf("write repository %d: %w", repo.ID, err)
			}
			written++
		}
		return nil
	})
	return written, err
}
