// Command rangedlbench benchmarks plain sequential HTTP GET against
// rangedl's concurrent ranged downloader for the same URL.
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rangedl/rangedl"
	"github.com/rangedl/rangedl/pkg/httpclient"
	"github.com/rangedl/rangedl/pkg/humansize"
	"github.com/rangedl/rangedl/pkg/ranges"
)

var (
	partSize       string
	maxConcurrent  uint
	bufferSize     int
	buffersFullDly string
)

var rootCmd = &cobra.Command{
	Use:   "rangedlbench <url>",
	Short: "Benchmark sequential GET against rangedl's concurrent ranged downloader",
	Long: `rangedlbench downloads the same URL twice - once with a single sequential
HTTP GET and once through rangedl.Engine using concurrent byte-range
fetches - then compares throughput and verifies the bytes match.`,
	Args:         cobra.ExactArgs(1),
	RunE:         runBenchmark,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&partSize, "part-size", "2Mi", "Part size for the ranged downloader (e.g. 2Mi, 512k)")
	rootCmd.Flags().UintVar(&maxConcurrent, "max-concurrent", 8, "Maximum concurrent range fetches")
	rootCmd.Flags().IntVar(&bufferSize, "buffer-size", 4, "Number of completed parts buffered ahead of the reader")
	rootCmd.Flags().StringVar(&buffersFullDly, "buffers-full-delay", "10", "Stall-nudge cadence in ms, or a Go duration string")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	url := args[0]

	size, err := humansize.ParseSize(partSize)
	if err != nil {
		return fmt.Errorf("invalid --part-size: %w", err)
	}
	delay, err := humansize.ParseStallDelay(buffersFullDly)
	if err != nil {
		return fmt.Errorf("invalid --buffers-full-delay: %w", err)
	}

	fmt.Printf("Benchmarking HTTP GET performance for: %s\n", url)
	fmt.Printf("Configuration: part-size=%d bytes, max-concurrent=%d, buffer-size=%d\n\n", size, maxConcurrent, bufferSize)

	sequentialFile, err := os.CreateTemp("", "rangedlbench-sequential-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for sequential response: %w", err)
	}
	defer func() {
		sequentialFile.Close()
		os.Remove(sequentialFile.Name())
	}()

	rangedFile, err := os.CreateTemp("", "rangedlbench-ranged-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for ranged response: %w", err)
	}
	defer func() {
		rangedFile.Close()
		os.Remove(rangedFile.Name())
	}()

	fmt.Println("Running sequential benchmark...")
	sequentialDuration, sequentialSize, err := benchmarkSequential(cmd.Context(), url, sequentialFile)
	if err != nil {
		return fmt.Errorf("sequential benchmark failed: %w", err)
	}
	fmt.Printf("sequential: %d bytes in %v (%.2f MB/s)\n", sequentialSize, sequentialDuration,
		float64(sequentialSize)/sequentialDuration.Seconds()/(1024*1024))

	fmt.Println("Running ranged benchmark...")
	rangedDuration, rangedSize, err := benchmarkRanged(cmd.Context(), url, rangedFile, size, delay)
	if err != nil {
		return fmt.Errorf("ranged benchmark failed: %w", err)
	}
	fmt.Printf("ranged:     %d bytes in %v (%.2f MB/s)\n", rangedSize, rangedDuration,
		float64(rangedSize)/rangedDuration.Seconds()/(1024*1024))

	fmt.Println("Validating response consistency...")
	if err := validateResponses(sequentialFile, rangedFile); err != nil {
		return fmt.Errorf("response validation failed: %w", err)
	}
	fmt.Println("responses match")

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("PERFORMANCE COMPARISON")
	fmt.Println(strings.Repeat("=", 60))

	speedup := float64(sequentialDuration) / float64(rangedDuration)
	switch {
	case speedup > 1.0:
		fmt.Printf("ranged was %.2fx faster than sequential\n", speedup)
	case speedup < 1.0:
		fmt.Printf("ranged was %.2fx slower than sequential\n", 1.0/speedup)
	default:
		fmt.Println("both approaches performed equally")
	}
	fmt.Printf("\nDetailed timing:\n")
	fmt.Printf("  Sequential: %v\n", sequentialDuration)
	fmt.Printf("  Ranged:     %v\n", rangedDuration)
	fmt.Printf("  Difference: %v\n", rangedDuration-sequentialDuration)

	return nil
}

func benchmarkSequential(ctx context.Context, url string, outputFile *os.File) (time.Duration, int64, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	pw := newProgressWriter(outputFile, resp.ContentLength, "  sequential")
	written, err := io.Copy(pw, resp.Body)
	pw.finish()
	if err != nil {
		return 0, 0, err
	}
	return time.Since(start), written, nil
}

func benchmarkRanged(ctx context.Context, url string, outputFile *os.File, partSizeBytes uint64, stallDelay time.Duration) (time.Duration, int64, error) {
	start := time.Now()

	client := httpclient.New(url, nil)
	cfg, err := rangedl.NewConfig(
		rangedl.WithPartSizeBytes(partSizeBytes),
		rangedl.WithMaxConcurrency(int(maxConcurrent)),
		rangedl.WithBufferSize(bufferSize),
		rangedl.WithBuffersFullDelay(stallDelay),
	)
	if err != nil {
		return 0, 0, err
	}

	eng := rangedl.New(client, cfg)
	dl, err := eng.Download(ctx, url, ranges.All())
	if err != nil {
		return 0, 0, err
	}
	defer dl.Close()

	total, _ := dl.Size()
	pw := newProgressWriter(outputFile, int64(total), "  ranged")
	written, err := io.Copy(pw, dl)
	pw.finish()
	if err != nil {
		return 0, 0, err
	}
	return time.Since(start), written, nil
}

func validateResponses(file1, file2 *os.File) error {
	stat1, err := file1.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat sequential file: %w", err)
	}
	stat2, err := file2.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat ranged file: %w", err)
	}
	if stat1.Size() != stat2.Size() {
		return fmt.Errorf("file sizes differ: sequential=%d bytes, ranged=%d bytes", stat1.Size(), stat2.Size())
	}

	hash1, err := computeFileHash(file1)
	if err != nil {
		return fmt.Errorf("failed to compute hash for sequential file: %w", err)
	}
	hash2, err := computeFileHash(file2)
	if err != nil {
		return fmt.Errorf("failed to compute hash for ranged file: %w", err)
	}
	if !bytes.Equal(hash1, hash2) {
		return fmt.Errorf("file contents differ: SHA-256 hashes do not match")
	}
	return nil
}

func computeFileHash(file *os.File) ([]byte, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to beginning: %w", err)
	}
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("failed to read file for hashing: %w", err)
	}
	return hasher.Sum(nil), nil
}

// progressWriter is a carriage-return-driven single-line progress bar,
// updated at most every 100ms.
type progressWriter struct {
	writer     io.Writer
	total      int64
	written    int64
	lastUpdate time.Time
	label      string
	finished   bool
	mu         sync.Mutex
}

func newProgressWriter(writer io.Writer, total int64, label string) *progressWriter {
	if total <= 0 {
		total = -1
	}
	return &progressWriter{writer: writer, total: total, label: label, lastUpdate: time.Now()}
}

func (pw *progressWriter) Write(data []byte) (int, error) {
	n, err := pw.writer.Write(data)
	if n > 0 {
		pw.mu.Lock()
		pw.written += int64(n)
		now := time.Now()
		if now.Sub(pw.lastUpdate) >= 100*time.Millisecond && (pw.total < 0 || pw.written < pw.total) {
			pw.printProgress()
			pw.lastUpdate = now
		}
		pw.mu.Unlock()
	}
	return n, err
}

func (pw *progressWriter) printProgress() {
	if pw.finished {
		return
	}
	if pw.total < 0 {
		fmt.Printf("\r%s: %d bytes", pw.label, pw.written)
		return
	}
	percent := float64(pw.written) / float64(pw.total) * 100
	if percent > 100 {
		percent = 100
	}
	barWidth := 30
	filled := int(percent / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
	fmt.Printf("\r%s: [%s] %.1f%% (%d/%d bytes)", pw.label, bar, percent, pw.written, pw.total)
}

func (pw *progressWriter) finish() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if !pw.finished {
		pw.printProgress()
		fmt.Println()
		pw.finished = true
	}
}
