package retrieval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/corpusworks/fusedex/core"
)

const (
	// DefaultTokenBudget bounds the assembled context block.
	DefaultTokenBudget = 2048

	// DefaultPerHitRuneLimit caps how much of each chunk's text is quoted.
	DefaultPerHitRuneLimit = 500
)

// TokenCounter measures the prompt cost of a piece of text.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the cl100k_base encoding used by
// OpenAI embedding and chat models.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var _ TokenCounter = (*TiktokenCounter)(nil)

// NewTiktokenCounter creates an exact token counter. The encoding data
// is fetched and cached on first use, so construction can fail offline;
// fall back to the builder's default approximate counter in that case.
func NewTiktokenCounter() (*TiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of cl100k_base tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// approxCounter estimates four runes per token, which tracks English
// prose closely enough for budgeting and needs no encoding data.
type approxCounter struct{}

var _ TokenCounter = approxCounter{}

func (approxCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// ContextBuilder formats retrieval hits into a text block suitable for
// inclusion in a language model prompt.
type ContextBuilder struct {
	tokenBudget int
	perHitRunes int
	counter     TokenCounter
}

// BuilderOption configures a ContextBuilder.
type BuilderOption func(*ContextBuilder) error

// WithTokenBudget caps the total token count of the assembled block.
// Zero removes the cap.
func WithTokenBudget(budget int) BuilderOption {
	return func(b *ContextBuilder) error {
		if budget < 0 {
			return fmt.Errorf("%w: token budget must not be negative, got %d", core.ErrInvalidConfig, budget)
		}
		b.tokenBudget = budget
		return nil
	}
}

// WithPerHitRuneLimit caps how many runes of each chunk are quoted
// before truncation. Zero removes the cap.
func WithPerHitRuneLimit(limit int) BuilderOption {
	return func(b *ContextBuilder) error {
		if limit < 0 {
			return fmt.Errorf("%w: per-hit rune limit must not be negative, got %d", core.ErrInvalidConfig, limit)
		}
		b.perHitRunes = limit
		return nil
	}
}

// WithTokenCounter replaces the default approximate counter, typically
// with a TiktokenCounter for exact budgeting.
func WithTokenCounter(counter TokenCounter) BuilderOption {
	return func(b *ContextBuilder) error {
		if counter == nil {
			return fmt.Errorf("%w: token counter is nil", core.ErrInvalidConfig)
		}
		b.counter = counter
		return nil
	}
}

// NewContextBuilder creates a builder with the default budget, per-hit
// cap, and approximate token counter.
func NewContextBuilder(opts ...BuilderOption) (*ContextBuilder, error) {
	b := &ContextBuilder{
		tokenBudget: DefaultTokenBudget,
		perHitRunes: DefaultPerHitRuneLimit,
		counter:     approxCounter{},
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Build renders hits into a numbered context block, best hit first.
// Hits are appended until the token budget would be exceeded; the first
// hit is always included so a tight budget still yields usable context.
// Returns the empty string when there is nothing to render.
func (b *ContextBuilder) Build(hits []*Hit) string {
	var sb strings.Builder
	included := 0
	used := 0

	for _, hit := range hits {
		if hit == nil || hit.Chunk == nil {
			continue
		}

		if included == 0 {
			header := "RELEVANT DOCUMENTATION:\n\n"
			sb.WriteString(header)
			used = b.counter.Count(header)
		}

		entry := b.formatEntry(included+1, hit)
		cost := b.counter.Count(entry)
		if b.tokenBudget > 0 && included > 0 && used+cost > b.tokenBudget {
			break
		}

		sb.WriteString(entry)
		used += cost
		included++
	}

	if included == 0 {
		return ""
	}
	return sb.String()
}

func (b *ContextBuilder) formatEntry(position int, hit *Hit) string {
	text := truncateRunes(hit.Chunk.Text, b.perHitRunes)
	attribution := hit.Source
	if hit.Title != "" {
		attribution = fmt.Sprintf("%s (%s)", hit.Title, hit.Source)
	}
	return fmt.Sprintf("%d. %s\n   Source: %s\n\n", position, text, attribution)
}

// truncateRunes shortens text to at most limit runes, marking the cut.
func truncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
