// Package main - balance-runner
// Executable to run the headless balance scenarios.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cosmic-idle/server/internal/config"
	"github.com/cosmic-idle/server/internal/simulation"
)

func main() {
	configPath := flag.String("config", "", "optional balance config (YAML)")
	dt := flag.Float64("dt", simulation.DefaultStep, "simulated seconds per step")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(2)
		}
		cfg = loaded
	}

	fmt.Println("COSMIC IDLE - BALANCE SCENARIOS")
	fmt.Println(strings.Repeat("=", 60))

	runner := simulation.NewRunner(*dt, cfg.EngineConfig(), nil)
	scenarios := simulation.DefaultScenarios()
	results := runner.Run(context.Background(), scenarios)

	for i, r := range results {
		mark := "PASS"
		if !r.Passed {
			mark = "FAIL"
		}
		fmt.Printf("\n[%s] %s\n", mark, r.ScenarioName)
		fmt.Printf("   %s\n", scenarios[i].Description)
		fmt.Printf("   expected: %s\n", r.Expected)
		fmt.Printf("   actual:   %s\n", r.Actual)
	}

	passed, failed := simulation.Summary(results)
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("   passed: %d\n", passed)
	fmt.Printf("   failed: %d\n", failed)

	if failed > 0 {
		fmt.Println("\nBalance needs recalibration")
		os.Exit(1)
	}
}
