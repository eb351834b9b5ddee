package main

// workload_gen.go is a tiny helper utility to generate deterministic
// (description, position) workloads for standalone benchmarking of
// packblockcache outside `go test`. It emits newline-separated
// "<description>\t<position>" pairs which a benchmark driver can replay
// against BlockCache.GetOrLoad.
//
// Usage:
//
//	go run ./tools/workload_gen --n 1000000 --packs 64 --dist zipf --seed 42 --out workload.tsv
//
// Flags:
//
//	--n      number of (description, position) pairs to generate (default 1e6)
//	--packs  number of distinct pack descriptions to spread requests across
//	--dist   distribution over pack selection: "uniform" or "zipf"
//	--zipfs  Zipf s parameter (>1)
//	--zipfv  Zipf v parameter (>0)
//	--seed   RNG seed (default current time)
//	--out    output file (default stdout)
//
// © 2025 packblockcache authors. MIT License.

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"time"

	flag "github.com/spf13/pflag"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of (description, position) pairs to generate")
		packs   = flag.Int("packs", 64, "number of distinct pack descriptions")
		dist    = flag.String("dist", "uniform", "pack-selection distribution: uniform or zipf")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>0)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seedVal))

	var packIndex func() uint64
	switch *dist {
	case "uniform":
		packIndex = func() uint64 { return uint64(rnd.Intn(*packs)) }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV <= 0 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >0")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, uint64(*packs-1))
		packIndex = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	for i := 0; i < *n; i++ {
		desc := fmt.Sprintf("pack-%05d.bin", packIndex())
		pos := rnd.Int63n(64 << 20)
		fmt.Fprintf(w, "%s\t%d\n", desc, pos)
	}
}
