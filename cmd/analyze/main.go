package main

// One-shot analysis from the command line, no server required:
//   go run ./cmd/analyze -url https://example.com/post
//   go run ./cmd/analyze -file essay.txt -tier paid

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"originlytics-backend/internal/acquire"
	"originlytics-backend/internal/analyses"
	"originlytics-backend/internal/invoker"
	"originlytics-backend/internal/llm"
	"originlytics-backend/internal/llm/gateway"
	"originlytics-backend/internal/llm/openai"
	"originlytics-backend/internal/shared/config"
)

func main() {
	var (
		urlFlag  = flag.String("url", "", "analyze a public URL")
		fileFlag = flag.String("file", "", "analyze a local text file")
		tierFlag = flag.String("tier", "free", "analysis tier: free or paid")
	)
	flag.Parse()

	cfg := config.Load()

	req := analyses.Request{Tier: *tierFlag, AllowAdvanced: cfg.AllowAdvanced}
	switch {
	case *urlFlag != "" && *fileFlag != "":
		log.Fatal("pass either -url or -file, not both")
	case *urlFlag != "":
		req.URL = *urlFlag
	case *fileFlag != "":
		raw, err := os.ReadFile(*fileFlag)
		if err != nil {
			log.Fatalf("read %s: %v", *fileFlag, err)
		}
		req.Text = string(raw)
	default:
		log.Fatal("pass -url or -file")
	}

	client := llm.Client(llm.PlaceholderClient{})
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey != "" {
		c, err := openai.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Fatalf("llm client: %v", err)
		}
		client = c
	}

	orch := analyses.NewOrchestrator(
		gateway.New(client, gateway.Options{
			RequestsPerMin: cfg.LLMRequestsPerMin,
			MaxConcurrent:  cfg.LLMMaxConcurrent,
			MaxAttempts:    cfg.LLMRetryMaxAttempts,
		}),
		invoker.New(cfg.PythonBin, cfg.AnalyzerDir),
		acquire.New(acquire.Options{
			Timeout:      cfg.FetchTimeout,
			Retries:      cfg.FetchRetries,
			UserAgent:    cfg.FetchUserAgent,
			HostInterval: cfg.HostRateWindow,
		}),
		nil,
		analyses.Options{
			Model:           cfg.LLMModel,
			PhaseTimeout:    cfg.PhaseTimeout,
			MinWords:        cfg.MinWordCount,
			AnalyzerTimeout: cfg.AnalyzerTimeout,
			AnalyzerRetries: cfg.AnalyzerRetries,
			AllowAdvanced:   cfg.AllowAdvanced,
		},
	)

	result, err := orch.Run(context.Background(), req)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode result: %v", err)
	}
	fmt.Println(string(out))
}
