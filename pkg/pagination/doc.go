// Package pagination holds the repository listing as it grows page by page.
//
// A Lister owns the loaded collection, the cursor of the next page and two
// independent loads, each single-flight:
//
//   - LoadFirstPage fetches from the origin and replaces the collection.
//   - LoadNextPageIfNeeded appends the next page once the referenced item is
//     within the prefetch threshold of the end.
//
// Every load returns a model.LoadOutcome. A cancelled load changes nothing
// and records no error; a failed load records a user-facing message and
// keeps the collection.
//
// Example usage:
//
//	lister := pagination.NewLister(githubClient)
//	lister.LoadFirstPage(ctx)
//	state := lister.Snapshot()
//	lister.LoadNextPageIfNeeded(ctx, state.Items[len(state.Items)-1])
//
// Walk follows cursors sequentially for batch consumers such as the dump
// command.
package pagination
