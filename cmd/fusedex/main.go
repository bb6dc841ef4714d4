// Copyright 2025 Corpusworks
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/corpusworks/fusedex"
	"github.com/corpusworks/fusedex/chunk"
	"github.com/corpusworks/fusedex/core"
	"github.com/corpusworks/fusedex/embed"
	"github.com/corpusworks/fusedex/ingest"
	"github.com/corpusworks/fusedex/retrieval"
)

func main() {
	// Load .env before flag parsing so EnvVars pick it up.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "fusedex",
		Usage: "Hybrid dense and sparse retrieval over local documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Index a document file, or stdin with -",
				ArgsUsage: "<file|->",
				Action:    ingestCommand,
				Flags: indexFlags(
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source identifier to index under (defaults to the file path)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title (defaults to the file name)",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N embeddings",
						Value: 10,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid query against the index",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: indexFlags(
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   retrieval.DefaultLimit,
					},
					&cli.IntFlag{
						Name:  "per-list-limit",
						Usage: "Candidates fetched per retrieval path (0 = 2x limit)",
					},
					&cli.IntFlag{
						Name:  "rrf-k",
						Usage: "Rank fusion constant",
						Value: retrieval.DefaultRRFConstant,
					},
					&cli.BoolFlag{
						Name:  "context",
						Usage: "Print an LLM-ready context block instead of a hit list",
					},
				),
			},
			{
				Name:   "sources",
				Usage:  "List indexed documents",
				Action: sourcesCommand,
				Flags:  indexFlags(),
			},
			{
				Name:      "delete",
				Usage:     "Remove a document and its chunks from the index",
				ArgsUsage: "<source>",
				Action:    deleteCommand,
				Flags:     indexFlags(),
			},
		},
	}
}

// indexFlags returns the flags shared by every command, followed by any
// command-specific extras.
func indexFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to the index directory",
			Value:   "./fusedex_db",
			EnvVars: []string{"FUSEDEX_DB"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "OpenAI-compatible embedding service URL",
			Value:   "https://api.openai.com/v1",
			EnvVars: []string{"OPENAI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-small",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the embedding service",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.IntFlag{
			Name:  "embedding-dimensions",
			Usage: "Expected dense vector dimensionality",
			Value: 1536,
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Chunk window size in runes",
			Value: chunk.DefaultChunkSize,
		},
		&cli.IntFlag{
			Name:  "chunk-overlap",
			Usage: "Overlap between consecutive chunks in runes",
			Value: chunk.DefaultOverlap,
		},
	}
	return append(flags, extra...)
}

func engineFromFlags(c *cli.Context) (*fusedex.Engine, error) {
	config := embed.NewConfig(
		embed.WithHost(c.String("embedding-host")),
		embed.WithAPIKey(c.String("api-key")),
		embed.WithModel(c.String("embedding-model")),
		embed.WithDimensions(c.Int("embedding-dimensions")),
	)
	config.Normalize()

	return fusedex.New(c.String("db"),
		fusedex.WithEmbedConfig(config),
		fusedex.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
	)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("usage: fusedex ingest [flags] <file|->")
	}

	var text []byte
	var err error
	source := c.String("source")
	if path == "-" {
		if source == "" {
			return fmt.Errorf("--source is required when reading from stdin")
		}
		text, err = io.ReadAll(os.Stdin)
	} else {
		if source == "" {
			source = path
		}
		text, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	title := c.String("title")
	if title == "" {
		base := filepath.Base(source)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	engine, err := engineFromFlags(c)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer engine.Close()

	progress := ingest.NewConsoleProgress(os.Stderr, c.Int("report-interval"))
	pipeline, err := engine.NewPipeline(ingest.WithProgress(progress.Callback()))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	doc := &core.Document{Source: source, Title: title, Text: string(text)}
	count, err := pipeline.Ingest(ctx, doc)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	progress.Finish()

	fmt.Fprintf(os.Stderr, "Indexed %s: %d chunks in %s\n",
		source, count, progress.Elapsed().Round(time.Millisecond))
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("usage: fusedex search [flags] <query>")
	}

	engine, err := engineFromFlags(c)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer engine.Close()

	result, err := engine.Retrieve(ctx, query, retrieval.Options{
		Limit:        c.Int("limit"),
		PerListLimit: c.Int("per-list-limit"),
		RRFConstant:  c.Int("rrf-k"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if result.Degraded {
		fmt.Fprintf(os.Stderr, "warning: %s\n", result.DegradedReason)
	}

	if c.Bool("context") {
		block := engine.BuildContext(result.Hits)
		if block == "" {
			fmt.Fprintln(os.Stderr, "No results.")
			return nil
		}
		fmt.Print(block)
		return nil
	}

	fmt.Printf("Found %d hits\n", len(result.Hits))
	for i, hit := range result.Hits {
		fmt.Printf("%d. [%0.4f] %s (chunk %d, dense %s, sparse %s)\n",
			i+1, hit.Score, hit.Source, hit.Chunk.Ordinal,
			rankLabel(hit.DenseRank), rankLabel(hit.SparseRank))
		fmt.Printf("   %s\n", snippet(hit.Chunk.Text, 160))
	}
	return nil
}

func sourcesCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := engineFromFlags(c)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer engine.Close()

	stats, err := engine.Sources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(stats) == 0 {
		fmt.Println("No documents indexed.")
		return nil
	}

	for _, stat := range stats {
		title := stat.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %d chunks  %s  %s\n",
			stat.Source, stat.ChunkCount, title, stat.IngestedAt.Format(time.RFC3339))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	source := c.Args().First()
	if source == "" {
		return fmt.Errorf("usage: fusedex delete [flags] <source>")
	}

	engine, err := engineFromFlags(c)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer engine.Close()

	removed, err := engine.DeleteSource(ctx, source)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Removed %d chunks for %s\n", removed, source)
	return nil
}

// snippet flattens whitespace and truncates text for one-line display.
func snippet(text string, limit int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}

// rankLabel renders a 1-based rank, or "-" when the chunk missed that list.
func rankLabel(rank int) string {
	if rank == 0 {
		return "-"
	}
	return fmt.Sprintf("#%d", rank)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
