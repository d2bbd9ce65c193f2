package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/foxter/foxter/pkg/core"
)

// ExampleScan scans a directory and prints the flagged files.
func ExampleScan() {
	results, stats, err := core.Scan(context.Background(), ".", core.Config{ExcludeGlobs: "**/.git/**"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		return
	}
	for _, r := range results {
		if r.Verdict == core.VerdictSuspicious {
			fmt.Println(r.Path)
		}
	}
	fmt.Printf("%d of %d files suspicious\n", stats.Suspicious, stats.Total)
}

// ExampleEngine_Start follows a scan through its event stream.
func ExampleEngine_Start() {
	e, err := core.NewEngine(core.Config{BatchSize: 20})
	if err != nil {
		panic(err)
	}
	events, err := e.Start(context.Background(), os.TempDir())
	if err != nil {
		panic(err)
	}
	for ev := range events {
		switch ev.Kind {
		case core.EventProgress:
			fmt.Printf("\r%d%%", ev.Percent)
		case core.EventCompleted:
			fmt.Printf("\n%d files scanned\n", ev.Stats.Processed)
		}
	}
}
