package encoding_test

import (
	"flag"
	"fmt"
	"os"
	"testing"
)

//revive:disable:import-shadowing

// TestMain fails an otherwise green run of the encoding suite when -cover is set and
// coverage falls below -minimum-coverage.
func TestMain(m *testing.M) {
	minCoverage := flag.Float64(
		"minimum-coverage",
		0.85,
		"fraction of statements the encoding tests must cover, 0.0 - 1.0",
	)
	flag.Parse()

	exitCode := m.Run()

	if exitCode == 0 && testing.CoverMode() != "" {
		if covered := testing.Coverage(); covered < *minCoverage {
			fmt.Printf(
				"encoding tests passed but covered %.2f, below the required %.2f\n",
				covered,
				*minCoverage,
			)
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}
