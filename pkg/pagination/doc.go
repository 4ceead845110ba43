// Package pagination tracks page bookkeeping for commerce API collections and
// drives sequential traversal of multi-page listings.
//
// The API reports pagination in a response header carrying a JSON object:
//
//	X-Pagination: {"page":1,"total_pages":3,"total_records":250,"limit":100}
//
// Example usage:
//
//	fetcher := pagination.PageFetcherFunc(func(ctx context.Context, page, limit int) (pagination.PageResult, error) {
//		...
//	})
//	last, err := pagination.NewWalker(fetcher, pagination.DefaultConfig()).Walk(ctx)
//
// The walker:
//   - Fetches page 1 to learn the total page count
//   - Requests each following page in order, one at a time
//   - Stops once the next page would exceed total_pages
//   - Aborts on the first failing page and returns its error
package pagination
