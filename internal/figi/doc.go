// Package figi resolves ISINs to US exchange tickers through the OpenFIGI
// mapping API.
//
// The service enforces a per-client request rate, so resolution is strictly
// sequential: batches are paced by a rate limiter and never overlap.
// Results, including explicit no-match markers, are merged into a
// persistent cache after every successful batch so an interrupted run
// keeps its progress. Cached entries are reused verbatim within a run but
// are deliberately not treated as durable truth; deleting the cache file
// forces full re-resolution.
package figi
