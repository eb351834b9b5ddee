package main

// main.go implements the packblockcache inspector CLI: it parses command-line
// flags, fetches diagnostic data from a target process exposing the
// packblockcache debug endpoint, and prints it either as pretty text or JSON.
// It also supports periodic watch mode.
//
// The target Go service is expected to expose:
//   • GET /debug/packblockcache/snapshot — JSON payload with cache statistics.
//
// The snapshot object is intentionally generic; we decode into map[string]any
// to avoid version skew between CLI and library.
//
// © 2025 packblockcache authors. MIT License.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"
)

var version = "dev"

type options struct {
	target   string
	watch    bool
	interval time.Duration
	json     bool
	version  bool
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVarP(&opts.target, "target", "t", "http://localhost:6060", "base URL of the instrumented process")
	flag.BoolVarP(&opts.watch, "watch", "w", false, "poll the snapshot endpoint repeatedly")
	flag.DurationVarP(&opts.interval, "interval", "i", 2*time.Second, "poll interval in watch mode")
	flag.BoolVar(&opts.json, "json", false, "print the raw JSON snapshot instead of a table")
	flag.BoolVarP(&opts.version, "version", "v", false, "print the inspector version and exit")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	if opts.version {
		fmt.Println(version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if opts.watch {
		ticker := time.NewTicker(opts.interval)
		defer ticker.Stop()
		for {
			if err := dumpOnce(ctx, opts); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return
			}
		}
	}

	if err := dumpOnce(ctx, opts); err != nil {
		fatal(err)
	}
}

func dumpOnce(ctx context.Context, opts *options) error {
	snap, err := fetchSnapshot(ctx, opts.target)
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return prettyPrint(snap)
}

func fetchSnapshot(ctx context.Context, base string) (map[string]any, error) {
	url := base + "/debug/packblockcache/snapshot"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}
	var data map[string]any
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func prettyPrint(data map[string]any) error {
	fmt.Printf("Block size:   %s\n", humanize.Bytes(uint64(toFloat(data["block_size"]))))
	if v, ok := data["cached_bytes"]; ok {
		fmt.Printf("Cached bytes: %s\n", humanize.Bytes(uint64(toFloat(v))))
	}
	if v, ok := data["pack_count"]; ok {
		fmt.Printf("Packs open:   %v\n", v)
	}
	return nil
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "packblockcache-inspect:", err)
	os.Exit(1)
}
