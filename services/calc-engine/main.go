package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"pnl_forecast/pkg/core/calc"
	"pnl_forecast/pkg/core/config"
	"pnl_forecast/pkg/core/logger"
	"pnl_forecast/pkg/core/projection"
	"pnl_forecast/pkg/core/utils"
)

func main() {
	mode := flag.String("mode", "forecast", "Mode: forecast or check")
	dataStr := flag.String("data", "", "JSON or Hjson request payload")
	file := flag.String("file", "", "Path to a JSON request file ('-' for stdin)")
	configPath := flag.String("config", "", "Optional YAML configuration")
	verbose := flag.Bool("v", false, "Log engine diagnostics to stderr")
	flag.Parse()

	payload, err := readPayload(*dataStr, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var req projection.Request
	if err := utils.DecodeLenient(payload, &req); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling data: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewNop()
	if *verbose {
		// zap's development config writes to stderr, keeping stdout clean JSON.
		if l, err := logger.NewStructured("debug", "console"); err == nil {
			log = l
		}
	}

	res := projection.NewEngine(cfg.Forecast, projection.WithLogger(log)).Compute(req)

	switch *mode {
	case "forecast":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
	case "check":
		if err := runChecks(res); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Success: EBIT = Revenue - COGS - OPEX for %d months (model %s)\n",
			len(res.Projections), res.Model.Selected)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(2)
	}
}

func readPayload(data, file string) ([]byte, error) {
	switch {
	case data != "":
		return []byte(data), nil
	case file == "-":
		return io.ReadAll(os.Stdin)
	case file != "":
		return os.ReadFile(file)
	}
	return nil, fmt.Errorf("no data provided (use -data or -file)")
}

// runChecks verifies the P&L identity and margin of every projected month.
func runChecks(res projection.Result) error {
	for _, p := range res.Projections {
		v := calc.CheckPnL(calc.PnLLine{
			Label:              p.Month,
			Revenue:            p.Revenue,
			COGS:               p.COGS,
			Opex:               p.Opex,
			EBIT:               p.EBIT,
			OperatingMarginPct: p.OperatingMarginPct,
		})
		if !v.IsBalanced {
			return fmt.Errorf("check failed: %s", v.Warnings[0])
		}
	}
	return nil
}
