// Package source fetches and parses remote device listings.
//
// A Source descriptor names a URL and the parser kind to apply (CSV or HTML
// table). The Fetcher retrieves payloads with bounded exponential-backoff
// retries and fans out across sources concurrently, joining all fetches
// before results are handed to the differ. Failures are tagged as either a
// FetchError (transport, retried) or a ParseError (content shape, skipped).
package source
