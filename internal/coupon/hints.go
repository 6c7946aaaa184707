package coupon

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

// falsePositiveRate for the code prefilter. A positive only means "worth
// submitting"; a negative is definite.
const falsePositiveRate = 0.001

// FirstOrderChecker fetches the advisory first-order flag for a user.
type FirstOrderChecker interface {
	CheckFirstOrder(ctx context.Context, userID string) (bool, error)
}

// Hints supplies display-only coupon signals: a first-order flag and a
// membership prefilter over the published coupon code lists. The
// authoritative decision always flows through Resolver regardless of what
// these report.
type Hints struct {
	checker FirstOrderChecker
	log     *slog.Logger

	mu      sync.RWMutex
	filter  *bloom.BloomFilter
	sources int
	codes   int
}

// listLoadResult holds the outcome of loading a single code list.
type listLoadResult struct {
	index int
	codes []string
	err   error
}

// NewHints creates a Hints service; the code prefilter stays disabled until
// one of the Load methods succeeds.
func NewHints(checker FirstOrderChecker, log *slog.Logger) *Hints {
	return &Hints{checker: checker, log: log}
}

// FirstOrder reports whether the user appears to qualify for a first-order
// coupon.
func (h *Hints) FirstOrder(ctx context.Context, userID string) (bool, error) {
	first, err := h.checker.CheckFirstOrder(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("first-order hint: %w", err)
	}
	return first, nil
}

// LooksKnown reports whether code appears in the loaded code lists. With no
// lists loaded there is no signal and every code looks known.
func (h *Hints) LooksKnown(code string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.filter == nil {
		return true
	}
	return h.filter.TestString(code)
}

// LoadFromURLs loads gzipped coupon code lists from URLs concurrently and
// builds the prefilter. Returns an error if any list fails to load.
func (h *Hints) LoadFromURLs(ctx context.Context, urls []string) error {
	return h.load(ctx, urls, fetchURL)
}

// LoadFromFiles is the local-file counterpart of LoadFromURLs; files ending
// in .gz are decompressed.
func (h *Hints) LoadFromFiles(ctx context.Context, paths []string) error {
	return h.load(ctx, paths, openFile)
}

func (h *Hints) load(ctx context.Context, sources []string, open func(ctx context.Context, src string) (io.ReadCloser, error)) error {
	if len(sources) == 0 {
		return fmt.Errorf("no coupon code sources provided")
	}

	resultChan := make(chan listLoadResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(index int, source string) {
			defer wg.Done()

			codes, err := loadCodes(ctx, source, open)
			resultChan <- listLoadResult{index: index, codes: codes, err: err}
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]listLoadResult, len(sources))
	for result := range resultChan {
		results[result.index] = result
	}

	total := 0
	for i, result := range results {
		if result.err != nil {
			return fmt.Errorf("failed to load code list %d: %w", i+1, result.err)
		}
		total += len(result.codes)
	}

	n := total
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(uint(n), falsePositiveRate)
	for _, result := range results {
		for _, code := range result.codes {
			filter.AddString(code)
		}
	}

	h.mu.Lock()
	h.filter = filter
	h.sources = len(sources)
	h.codes = total
	h.mu.Unlock()

	h.log.Info("coupon hint lists loaded", "sources", len(sources), "codes", total)
	return nil
}

// Stats returns loading statistics for monitoring.
func (h *Hints) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"loaded":      h.filter != nil,
		"total_files": h.sources,
		"total_codes": h.codes,
	}
}

func loadCodes(ctx context.Context, source string, open func(ctx context.Context, src string) (io.ReadCloser, error)) ([]string, error) {
	r, err := open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return parseCodes(r)
}

// parseCodes reads one coupon code per line, skipping blanks.
func parseCodes(r io.Reader) ([]string, error) {
	var codes []string
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			codes = append(codes, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading list: %w", err)
	}
	return codes, nil
}

func fetchURL(ctx context.Context, url string) (io.ReadCloser, error) {
	// Large published lists need more time than a normal API call
	client := &http.Client{Timeout: 5 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download list: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return &gzipReadCloser{gz: gz, underlying: resp.Body}, nil
}

func openFile(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open list: %w", err)
	}

	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return &gzipReadCloser{gz: gz, underlying: f}, nil
}

// gzipReadCloser closes both the gzip stream and its underlying source.
type gzipReadCloser struct {
	gz         *gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gerr := g.gz.Close()
	uerr := g.underlying.Close()
	if gerr != nil {
		return gerr
	}
	return uerr
}
