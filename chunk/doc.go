// Package chunk splits document text into overlapping spans suitable for
// embedding and indexing.
//
// The splitter slides a fixed-size window over the text and cuts each
// window at the most preferred separator it contains, so spans tend to
// end on markdown headings, paragraphs, or sentences rather than in the
// middle of a word. Three guarantees hold for every input:
//
//   - spans cover the input with no gaps
//   - consecutive spans share exactly the configured overlap
//   - no span exceeds the configured chunk size
//
// Splitting is deterministic and lazy; see Splitter.Split.
package chunk
