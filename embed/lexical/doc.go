// Package lexical provides a sparse encoder built on token frequencies.
//
// The encoder lowercases, strips punctuation, and drops English stop
// words, then hashes each surviving token to a stable 32-bit ID and
// weights it by 1 + ln(term frequency). Everything happens locally; the
// encoder never calls a remote service and keeps working when the dense
// provider is down.
//
// Matching is exact after normalization. There is no stemming, so
// "retry" and "retries" are distinct tokens.
package lexical
