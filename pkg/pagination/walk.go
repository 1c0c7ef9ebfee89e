package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/rs/zerolog/log"
)

// PageFunc is called for every page Walk visits. Returning an error stops
// the walk.
type PageFunc func(pageNum int, page *model.Page) error

// Walk follows cursors from the first page, calling fn for each page. It
// stops after the terminal page, after maxPages pages (0 means no limit) or
// at the first error, and returns the number of pages visited.
func Walk(ctx context.Context, fetcher PageFetcher, maxPages int, fn PageFunc) (int, error) {
	start := time.Now()
	cursor := model.Cursor{}
	pages := 0
	repositories := 0

	for maxPages <= 0 || pages < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		page, err := fetcher.FetchPage(ctx, cursor)
		if err != nil {
			log.Warn().
				Err(err).
				Int("page", pages+1).
				Str("cursor", cursor.String()).
				Msg("Page fetch failed")
			return pages, fmt.Errorf("fetch page %d: %w", pages+1, err)
		}
		pages++
		repositories += len(page.Repositories)

		if err := fn(pages, page); err != nil {
			return pages, err
		}

		// Progress logging every 10 pages
		if pages%10 == 0 {
			log.Info().
				Int("pages", pages).
				Int("repositories", repositories).
				Msg("Walk progress")
		}

		if !page.HasNext() {
			break
		}
		cursor = page.Next
	}

	log.Info().
		Int("pages", pages).
		Int("repositories", repositories).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	return pages, nil
}
