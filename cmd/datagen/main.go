package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		teamID       = flag.String("team", cfg.TeamID, "team ID the ledger belongs to")
		chatters     = flag.Int("chatters", cfg.NumChatters, "number of chatters to generate")
		payments     = flag.Int("payments", cfg.NumPayments, "number of payments to generate")
		repeatChance = flag.Float64("repeat-chance", cfg.RepeatClientChance, "probability that a payment comes from a returning client")
		phoneOnly    = flag.Float64("phone-only-chance", cfg.PhoneOnlyChance, "probability that a new client is known only by phone")
		nameOnly     = flag.Float64("name-only-chance", cfg.NameOnlyChance, "probability that a new client is known only by name")
		feeChance    = flag.Float64("fee-chance", cfg.FeeChance, "probability that a payment carries a platform fee")
		span         = flag.Duration("span", cfg.Span, "how far back payments are spread")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "data", "directory to write ledger.json")
		writeStdout  = flag.Bool("stdout", false, "write dataset to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		TeamID:             *teamID,
		NumChatters:        *chatters,
		NumPayments:        *payments,
		RepeatClientChance: clampProbability(*repeatChance),
		PhoneOnlyChance:    clampProbability(*phoneOnly),
		NameOnlyChance:     clampProbability(*nameOnly),
		FeeChance:          clampProbability(*feeChance),
		Span:               *span,
		Seed:               *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d chatters and %d payments for %s into %s\n", len(dataset.Chatters), len(dataset.Payments), dataset.TeamID, *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
