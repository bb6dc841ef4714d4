package chunk

import (
	"fmt"
	"iter"
	"strings"

	"github.com/corpusworks/fusedex/core"
)

// Default window geometry, in runes.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// DefaultSeparators lists cut points from most to least preferred.
// Markdown structure outranks paragraphs, paragraphs outrank lines,
// lines outrank sentences, sentences outrank words.
var DefaultSeparators = []string{
	"\n## ",
	"\n### ",
	"\n#### ",
	"\n```",
	"\n\n",
	"\n",
	". ",
	" ",
}

// Span is one window of the input text. Start and End are rune offsets
// into the input; Text holds the runes in [Start, End).
type Span struct {
	Text  string
	Start int
	End   int
}

// Splitter cuts text into overlapping spans. Every span is at most
// chunkSize runes long, consecutive spans share exactly overlap runes,
// and together the spans cover the input with no gaps. Cuts prefer
// natural boundaries and fall back to a hard cut when none qualifies.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators [][]rune
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithSeparators replaces the separator preference list. Earlier entries
// are preferred over later ones.
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) error {
		if len(separators) == 0 {
			return fmt.Errorf("%w: separator list cannot be empty", core.ErrInvalidConfig)
		}
		runeSeps := make([][]rune, 0, len(separators))
		for _, sep := range separators {
			if sep == "" {
				return fmt.Errorf("%w: separator cannot be empty", core.ErrInvalidConfig)
			}
			runeSeps = append(runeSeps, []rune(sep))
		}
		s.separators = runeSeps
		return nil
	}
}

// NewSplitter creates a Splitter with the given window geometry.
// chunkSize must be positive and overlap must be smaller than chunkSize.
func NewSplitter(chunkSize, overlap int, opts ...Option) (*Splitter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", core.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap %d cannot be negative", core.ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", core.ErrInvalidConfig, overlap, chunkSize)
	}

	s := &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
	for _, sep := range DefaultSeparators {
		s.separators = append(s.separators, []rune(sep))
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Split lazily yields the spans of text in document order. Iteration is
// restartable: each range over the sequence re-runs the split from the
// beginning. Empty and whitespace-only input yields no spans.
func (s *Splitter) Split(text string) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		runes := []rune(text)
		n := len(runes)
		start := 0
		for start < n {
			hardEnd := start + s.chunkSize
			if hardEnd >= n {
				yield(Span{Text: string(runes[start:]), Start: start, End: n})
				return
			}

			end := s.cut(runes, start, hardEnd)
			if !yield(Span{Text: string(runes[start:end]), Start: start, End: end}) {
				return
			}
			start = end - s.overlap
		}
	}
}

// SplitAll collects every span of text eagerly.
func (s *Splitter) SplitAll(text string) []Span {
	var spans []Span
	for span := range s.Split(text) {
		spans = append(spans, span)
	}
	return spans
}

// cut picks the window end: the latest occurrence of the most preferred
// separator that still leaves the next window new material, or the hard
// boundary when no separator qualifies. The separator itself stays with
// the following span.
func (s *Splitter) cut(runes []rune, start, hardEnd int) int {
	lo := start + s.overlap + 1
	for _, sep := range s.separators {
		if idx := lastIndexFrom(runes, sep, lo, hardEnd); idx >= 0 {
			return idx
		}
	}
	return hardEnd
}

// lastIndexFrom returns the largest index in [lo, hi) at which sep occurs
// in runes, or -1. The occurrence may extend beyond hi.
func lastIndexFrom(runes, sep []rune, lo, hi int) int {
	for i := min(hi-1, len(runes)-len(sep)); i >= lo; i-- {
		if matchAt(runes, sep, i) {
			return i
		}
	}
	return -1
}

func matchAt(runes, sep []rune, at int) bool {
	for j, r := range sep {
		if runes[at+j] != r {
			return false
		}
	}
	return true
}
