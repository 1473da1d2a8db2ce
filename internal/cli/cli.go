// Package cli implements the command-line interface for ad2cp-index.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/DocOtak/ad2cp-index/internal/logctx"
	"github.com/DocOtak/ad2cp-index/pkg/ad2cp"
	"github.com/DocOtak/ad2cp-index/pkg/export"
	"github.com/DocOtak/ad2cp-index/pkg/fileutil"
	"github.com/DocOtak/ad2cp-index/pkg/format"
	"github.com/DocOtak/ad2cp-index/pkg/humanfmt"
	"github.com/DocOtak/ad2cp-index/pkg/indexread"
	"github.com/DocOtak/ad2cp-index/pkg/s3fetch"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: ad2cp-index <command> [options]\ncommands: scan, info, fetch")
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:])
	case "info":
		return runInfo(args[1:])
	case "fetch":
		return runFetch(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	from := fs.Int("from", 1, "first ensemble to keep (1-based)")
	to := fs.Int("to", 0, "last ensemble to index (0 means all)")
	by := fs.Int("by", 1, "keep every by-th ensemble")
	debug := fs.Int("debug", 0, "diagnostics verbosity (0-2)")
	human := fs.Bool("human", false, "human-friendly log output")
	outDir := fs.String("out", "", "directory to persist the index to")
	parquetPath := fs.String("parquet", "", "path to export the index as Parquet")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("scan requires exactly one capture path or s3:// URI")
	}
	capture := fs.Arg(0)

	logger := logctx.NewVerbosityLogger(*debug, *human)
	ctx := logctx.WithLogger(context.Background(), logger)
	ctx = logctx.WithStr(ctx, "capture", capture)

	stream, err := openCapture(ctx, capture)
	if err != nil {
		return err
	}
	defer stream.Close()

	start := time.Now()
	res, err := ad2cp.NewScanner(stream).Scan(ctx, ad2cp.ScanOptions{
		From: *from, To: *to, By: *by,
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", capture, err)
	}
	elapsed := time.Since(start)

	// The core indexes every record up to --to; the R-style from/by
	// subsampling is applied to the finished table.
	if *from > 1 || *by > 1 {
		res.Index = res.Index.Slice(*from-1, *by)
	}

	printScanSummary(res, elapsed)

	if *outDir != "" {
		if err := format.WriteIndex(*outDir, res); err != nil {
			return fmt.Errorf("write index to %s: %w", *outDir, err)
		}
		fmt.Printf("index written to %s\n", *outDir)
	}
	if *parquetPath != "" {
		if err := export.WriteParquetFile(*parquetPath, res); err != nil {
			return fmt.Errorf("export parquet to %s: %w", *parquetPath, err)
		}
		fmt.Printf("parquet written to %s\n", *parquetPath)
	}

	return nil
}

// openCapture opens a local file or an s3:// object for scanning.
func openCapture(ctx context.Context, capture string) (io.ReadCloser, error) {
	if s3fetch.IsS3URI(capture) {
		bucket, key, err := s3fetch.ParseS3URI(capture)
		if err != nil {
			return nil, err
		}
		client, err := s3fetch.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return client.StreamObject(ctx, bucket, key)
	}

	if !fileutil.Exists(capture) {
		return nil, fmt.Errorf("capture not found: %s", capture)
	}
	if !fileutil.IsNonEmpty(capture) {
		return nil, fmt.Errorf("capture is empty: %s", capture)
	}
	f, err := os.Open(capture)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return f, nil
}

func printScanSummary(res *ad2cp.Result, elapsed time.Duration) {
	idx := res.Index
	fmt.Printf("records: %s\n", humanfmt.Count(int64(idx.Len())))
	fmt.Printf("scanned: %s in %s (%s)\n",
		humanfmt.Bytes(int64(res.Bytes)),
		humanfmt.Duration(elapsed),
		humanfmt.Throughput(int64(res.Bytes), elapsed))
	if res.Skipped > 0 {
		fmt.Printf("skipped: %s before first sync marker\n", humanfmt.Bytes(int64(res.Skipped)))
	}
	fmt.Printf("broken end: %v\n", res.BrokenEnd)

	printIDTally(tallyIDs(idx))
}

func tallyIDs(idx *ad2cp.IndexTable) map[byte]int {
	tally := make(map[byte]int)
	for _, id := range idx.IDs() {
		tally[id]++
	}
	return tally
}

func printIDTally(tally map[byte]int) {
	ids := make([]int, 0, len(tally))
	for id := range tally {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		known := ""
		if !ad2cp.KnownID(byte(id)) {
			known = " (unrecognized)"
		}
		fmt.Printf("  id %3d%s: %s\n", id, known, humanfmt.Count(int64(tally[byte(id)])))
	}
}

// runFetch downloads a deployment's captures for local indexing.
func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	dir := fs.String("dir", ".", "directory to download captures to")
	concurrency := fs.Int("concurrency", 4, "captures downloaded in parallel")
	debug := fs.Int("debug", 0, "diagnostics verbosity (0-2)")
	human := fs.Bool("human", false, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("fetch requires at least one s3:// URI")
	}
	for _, uri := range fs.Args() {
		if !s3fetch.IsS3URI(uri) {
			return fmt.Errorf("not an s3:// URI: %s", uri)
		}
	}

	logger := logctx.NewVerbosityLogger(*debug, *human)
	ctx := logctx.WithLogger(context.Background(), logger)

	client, err := s3fetch.NewClient(ctx)
	if err != nil {
		return err
	}
	fetcher := s3fetch.NewFetcher(client, s3fetch.FetchConfig{
		URIs:        fs.Args(),
		DownloadDir: *dir,
		Concurrency: *concurrency,
		KeepFiles:   true,
	})

	start := time.Now()
	paths, err := fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch captures: %w", err)
	}

	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		total += info.Size()
		fmt.Println(p)
	}
	fmt.Printf("fetched %s in %s (%s)\n",
		humanfmt.Bytes(total),
		humanfmt.Duration(time.Since(start)),
		humanfmt.Throughput(total, time.Since(start)))
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	ids := fs.Bool("ids", false, "tally records per id")
	verify := fs.Bool("verify", false, "verify column file checksums")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("info requires exactly one index directory")
	}
	dir := fs.Arg(0)

	idx, err := indexread.Open(dir)
	if err != nil {
		return fmt.Errorf("open index %s: %w", dir, err)
	}
	defer idx.Close()

	m := idx.Manifest()
	fmt.Printf("records: %s\n", humanfmt.Count(int64(idx.Len())))
	fmt.Printf("created: %s\n", m.CreatedAt.Format(time.RFC3339))
	fmt.Printf("broken end: %v\n", m.BrokenEnd)
	if m.SkippedBytes > 0 {
		fmt.Printf("skipped: %s before first sync marker\n", humanfmt.Bytes(int64(m.SkippedBytes)))
	}

	if *verify {
		if err := format.VerifyManifest(dir, m); err != nil {
			return fmt.Errorf("verify index %s: %w", dir, err)
		}
		fmt.Println("column files verified")
	}

	if *ids {
		tally := make(map[byte]int)
		for i := uint64(0); i < idx.Len(); i++ {
			rec, err := idx.Lookup(i)
			if err != nil {
				return err
			}
			tally[rec.ID]++
		}
		printIDTally(tally)
	}

	return nil
}
