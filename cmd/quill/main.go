// Quill CLI - the main entry point for running compiled Quill programs
package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/quill-lang/quill/manifest"
	"github.com/quill-lang/quill/runtime"
	"github.com/quill-lang/quill/vm"
	"github.com/quill-lang/quill/vm/wire"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	disassemble := flag.Bool("d", false, "Disassemble instead of executing")
	noCache := flag.Bool("no-cache", false, "Bypass the program cache")
	workers := flag.Int("workers", 0, "Worker count (0 = from quill.toml, default 1)")
	stats := flag.Bool("cache-stats", false, "Print inline-cache statistics after execution")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quill [options] program.qbc\n\n")
		fmt.Fprintf(os.Stderr, "Executes a compiled Quill bytecode program.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quill app.qbc            # Execute a program\n")
		fmt.Fprintf(os.Stderr, "  quill -d app.qbc         # Print its bytecode listing\n")
		fmt.Fprintf(os.Stderr, "  quill -workers 4 app.qbc # Run with a larger worker pool\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Project configuration is optional; absence means defaults.
	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	proto, err := loadProgram(data, mf, *noCache, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *disassemble {
		fmt.Print(vm.DisassembleProto(proto))
		return
	}

	n := *workers
	if n == 0 && mf != nil {
		n = mf.Runtime.Workers
	}
	pool := runtime.NewPool(n)
	defer pool.Close()

	result, err := pool.Run(context.Background(), proto, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", result.Err)
		os.Exit(1)
	}

	if *stats {
		s := vm.Caches().Stats()
		fmt.Fprintf(os.Stderr, "inline caches: %d sites, %d hits, %d misses\n", s.Sites, s.Hits, s.Misses)
	}

	// A program returning a small integer sets the exit code.
	if result.Value.Kind == vm.KindInt && result.Value.Int >= 0 && result.Value.Int < 256 {
		os.Exit(int(result.Value.Int))
	}
}

// loadProgram decodes the bytecode file, consulting the program cache when
// a project manifest configures one.
func loadProgram(data []byte, mf *manifest.Manifest, noCache, verbose bool) (*vm.FunctionProto, error) {
	if mf == nil || noCache {
		return wire.UnmarshalProgram(data)
	}

	cache, err := wire.OpenCache(mf.CachePath())
	if err != nil {
		// A broken cache degrades to direct decoding.
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		}
		return wire.UnmarshalProgram(data)
	}
	defer cache.Close()

	key := sha256.Sum256(data)
	if proto, err := cache.Get(key); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "cache hit")
		}
		return proto, nil
	} else if !errors.Is(err, wire.ErrCacheMiss) && verbose {
		fmt.Fprintf(os.Stderr, "Warning: cache read failed: %v\n", err)
	}

	proto, err := wire.UnmarshalProgram(data)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(key, proto); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "Warning: cache write failed: %v\n", err)
	}
	return proto, nil
}
