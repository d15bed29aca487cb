// Package signal detects risk and opportunity signals in ingested documents.
//
// Detection is two-tiered to keep model costs bounded. A keyword tier matches
// every chunk against compiled per-category rule sets; only chunks it flags
// are submitted to the optional classifier tier, which confirms, rejects, or
// leaves candidates unclassified. The classifier never promotes a chunk the
// keyword tier found clean.
//
// Surviving candidates are rolled up into at most one alert per document and
// category, with the best-scoring chunks attached as evidence. An alert whose
// dedupe key collides with an active alert inside the rolling window is
// merged into it or dropped instead of being stored twice.
package signal
