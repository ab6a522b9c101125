// package tasks implements the incremental crawl and reconciliation engine.
//
// The core abstraction is CrawlEngine, which walks the remote ranked catalog
// page by page, streams songs into the Reconciler, and gates unranking on
// full-stream success. Operations emit progress updates via channels for
// non-blocking status reporting to the CLI layer.
package tasks
