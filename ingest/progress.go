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


package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ConsoleProgress renders embedding progress as a single rewritten line.
// It is safe for concurrent use; the pipeline reports from multiple
// workers.
type ConsoleProgress struct {
	writer         io.Writer
	reportInterval int
	mu             sync.Mutex
	total          int
	current        int
	lastReported   int
	startTime      time.Time
	started        bool
}

// NewConsoleProgress creates a progress printer.
// writer: where to write progress output (typically os.Stderr)
// reportInterval: redraw the line every N completed embeddings
func NewConsoleProgress(writer io.Writer, reportInterval int) *ConsoleProgress {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ConsoleProgress{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// Callback returns a function suitable for WithProgress. The first
// report starts the clock.
func (p *ConsoleProgress) Callback() func(done, total int) {
	return func(done, total int) {
		p.update(done, total)
	}
}

func (p *ConsoleProgress) update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.started = true
		p.startTime = time.Now()
	}

	p.total = total
	if done > total {
		done = total
	}
	// Workers report out of order; never move backwards.
	if done < p.current {
		return
	}
	p.current = done

	if p.current-p.lastReported >= p.reportInterval || p.current == p.total {
		p.report()
		p.lastReported = p.current
	}
}

// Finish completes the progress line with a trailing newline.
func (p *ConsoleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since the first progress report.
func (p *ConsoleProgress) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ConsoleProgress) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rEmbedding: %d/%d (%.1f%%) - %.1f chunks/s",
		p.current, p.total, percentage, rate)
}
