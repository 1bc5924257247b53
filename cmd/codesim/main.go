// codesim scans source trees for near-duplicate functions and prints the
// highest-scoring pairs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/baditaflorin/l"
	"github.com/fatih/color"

	codesimilarity "github.com/baditaflorin/go_code_similarity"
	"github.com/baditaflorin/go_code_similarity/internal/adapters/reporter"
)

// Version of the codesim tool.
const Version = "1.0.0"

// args represents the command line arguments.
type args struct {
	Paths []string `arg:"positional,required" help:"files or directories to scan" placeholder:"PATH"`

	// Comparison options
	MinSimilarity float64 `arg:"-m,--min-similarity" help:"minimum similarity score (0-100)" default:"80"`
	MinLines      int     `arg:"-l,--min-lines"      help:"ignore fragments spanning fewer lines" default:"0"`
	Raw           bool    `arg:"--raw"               help:"compare raw text instead of normalized text"`
	Duplicates    bool    `arg:"-d,--duplicates"     help:"report only duplicate pairs (score >= 90)"`
	Sequential    bool    `arg:"--sequential"        help:"disable parallel comparison"`
	Target        string  `arg:"-t,--target"         help:"compare this file's fragments against the corpus instead of pairwise" placeholder:"FILE"`

	// Output options
	JSON     bool `arg:"-j,--json" help:"emit results as JSON"`
	Diff     bool `arg:"--diff"    help:"render a diff under each reported pair"`
	NoColor  bool `arg:"--no-color" help:"disable colored output"`
	Progress bool `arg:"-p,--progress" help:"print comparison progress to stderr (sequential mode only)"`
	Quiet    bool `arg:"-q,--quiet"    help:"suppress logging"`
}

func (args) Version() string {
	return "codesim " + Version
}

func (args) Description() string {
	return "codesim reports pairs of similar source-code functions using edit-distance scoring."
}

func main() {
	var a args
	arg.MustParse(&a)

	if a.NoColor {
		color.NoColor = true
	}

	if err := run(a); err != nil {
		fmt.Fprintf(os.Stderr, "codesim: %v\n", err)
		os.Exit(1)
	}
}

func run(a args) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(a)
	if err != nil {
		return err
	}

	fragments, err := collect(ctx, engine, a.Paths)
	if err != nil {
		return err
	}

	var results []codesimilarity.Result
	diffSource := fragments
	switch {
	case a.Target != "":
		var targets []codesimilarity.Fragment
		targets, err = engine.ExtractFile(ctx, a.Target)
		if err != nil {
			return err
		}
		diffSource = append(targets, fragments...)
		results, err = engine.CompareAgainst(ctx, targets, fragments)
	case a.Duplicates:
		results, err = engine.FindDuplicates(ctx, fragments)
	case a.Sequential:
		results, err = engine.CompareAll(ctx, fragments)
	default:
		results, err = engine.CompareAllParallel(ctx, fragments)
	}
	if err != nil {
		return err
	}

	return report(a, diffSource, results)
}

func newEngine(a args) (*codesimilarity.Engine, error) {
	opts := []codesimilarity.Option{
		codesimilarity.WithMinSimilarity(a.MinSimilarity),
		codesimilarity.WithMinLines(a.MinLines),
	}
	if a.Raw {
		opts = append(opts, codesimilarity.WithRawText())
	}
	progressActive := a.Progress && a.Sequential && !a.Duplicates && a.Target == ""
	if a.Progress && !progressActive {
		fmt.Fprintln(os.Stderr, "codesim: --progress only applies to sequential pairwise runs; ignoring")
	}
	if progressActive {
		opts = append(opts, codesimilarity.WithProgress(func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rcompared %d/%d pairs", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}))
	}
	if a.Quiet {
		lg, err := quietLogger()
		if err != nil {
			return nil, err
		}
		opts = append(opts, codesimilarity.WithLogger(lg))
	}
	return codesimilarity.New(opts...)
}

// collect gathers fragments from every path, file or directory, in the
// order given on the command line.
func collect(ctx context.Context, engine *codesimilarity.Engine, paths []string) ([]codesimilarity.Fragment, error) {
	var fragments []codesimilarity.Fragment
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		var extracted []codesimilarity.Fragment
		if info.IsDir() {
			extracted, err = engine.ExtractTree(ctx, path)
		} else {
			extracted, err = engine.ExtractFile(ctx, path)
		}
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, extracted...)
	}
	return fragments, nil
}

func report(a args, fragments []codesimilarity.Fragment, results []codesimilarity.Result) error {
	if a.JSON {
		return reporter.NewJSONReporter().Report(os.Stdout, results)
	}

	var opts []reporter.Option
	if a.Diff {
		opts = append(opts, reporter.WithDiffs(fragments))
	}
	return reporter.NewTextReporter(opts...).Report(os.Stdout, results)
}

// quietLogger discards engine logging so only results reach the terminal.
func quietLogger() (l.Logger, error) {
	return l.NewStandardFactory().CreateLogger(l.Config{
		Output:     io.Discard,
		JsonFormat: false,
		AsyncWrite: false,
	})
}
