package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"cvanalyzer/semantic-cv-analyzer/internal/config"
	"cvanalyzer/semantic-cv-analyzer/internal/logger"
	"cvanalyzer/semantic-cv-analyzer/internal/models"
	"cvanalyzer/semantic-cv-analyzer/internal/services"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cvPaths := fs.StringSlice("cv", nil, "résumé file (PDF, DOCX or text); repeat or comma-separate for a batch")
	jdPath := fs.String("jd", "", "job description text file, or - for stdin")
	strict := fs.Bool("strict", false, "fail when a sub-score is missing from the LLM reply")
	asJSON := fs.Bool("json", false, "print reports as JSON")
	concurrency := fs.IntP("concurrency", "c", 2, "analyses in flight for a batch")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(*cvPaths) == 0 || *jdPath == "" {
		fmt.Fprintln(stderr, "usage: analyze --cv resume.pdf [--cv other.pdf] --jd job.txt [--strict] [--json]")
		fs.PrintDefaults()
		return 2
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewWithWriter("semantic-cv-analyzer-cli", zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen})
	log.Logger = log.Logger.Level(level)

	cfg := config.Load()
	if fs.Changed("strict") {
		cfg.Parser.Strict = *strict
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("❌ Invalid configuration")
		return 1
	}

	jobDescription, err := readJobDescription(*jdPath)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to read job description")
		return 1
	}

	jobs := make([]services.BatchJob, 0, len(*cvPaths))
	for _, path := range *cvPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("❌ Failed to read résumé")
			return 1
		}
		jobs = append(jobs, services.BatchJob{Filename: filepath.Base(path), Data: data})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promptBuilder := services.NewPromptBuilder(cfg.Prompt.MaxChars, cfg.Prompt.FloorChars)
	if err := promptBuilder.CheckBudget(); err != nil {
		log.Error().Err(err).Msg("❌ Invalid prompt budget")
		return 1
	}

	llm, err := services.NewLLMClient(ctx, cfg.LLM, log)
	if err != nil {
		log.Error().Err(err).Msg("❌ LLM client unavailable")
		return 1
	}

	analyzer := services.NewAnalyzerService(
		services.NewDocumentLoader(),
		llm,
		promptBuilder,
		services.NewResponseParser(cfg.Parser.Strict),
		nil,
		cfg.LLM.Timeout,
		log,
	)

	results := services.NewWorker(analyzer, *concurrency, log).Run(ctx, jobDescription, jobs)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	if *asJSON {
		err = writeJSON(stdout, results)
	} else {
		err = writeText(stdout, results)
	}
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to write output")
		return 1
	}

	if failed > 0 {
		log.Warn().Int("failed", failed).Int("total", len(results)).Msg("⚠️ Some analyses failed")
		return 1
	}
	return 0
}

func readJobDescription(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", services.ErrEmptyInput
	}
	return text, nil
}

type jsonResult struct {
	File   string                 `json:"file"`
	Report *models.AnalysisReport `json:"report,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Kind   string                 `json:"kind,omitempty"`
}

func writeJSON(w io.Writer, results []services.BatchResult) error {
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		item := jsonResult{File: res.Filename}
		if res.Err != nil {
			item.Error = res.Err.Error()
			item.Kind = services.OutcomeFor(res.Err)
		} else {
			item.Report = res.Report
		}
		out = append(out, item)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(out) == 1 {
		return enc.Encode(out[0])
	}
	return enc.Encode(out)
}

func writeText(w io.Writer, results []services.BatchResult) error {
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "== %s ==\n", res.Filename)
		if res.Err != nil {
			fmt.Fprintf(&b, "error (%s): %v\n", services.OutcomeFor(res.Err), res.Err)
			continue
		}

		r := res.Report.Result
		if r.OverallMatch != nil {
			fmt.Fprintf(&b, "Overall match:     %d%%\n", *r.OverallMatch)
		}
		fmt.Fprintf(&b, "Technical match:   %d%%\n", r.TechnicalMatch)
		fmt.Fprintf(&b, "Experience match:  %d%%\n", r.ExperienceMatch)
		fmt.Fprintf(&b, "Soft skills match: %d%%\n", r.SoftSkillsMatch)
		if len(r.MissingKeywords) > 0 {
			fmt.Fprintf(&b, "Missing keywords:  %s\n", strings.Join(r.MissingKeywords, ", "))
		} else {
			b.WriteString("Missing keywords:  none\n")
		}
		if r.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", r.Summary)
		}
		if r.InterviewQuestion != "" {
			fmt.Fprintf(&b, "Interview question: %s\n", r.InterviewQuestion)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(&b, "warning: %s is %s\n", warn.Field, warn.Kind)
		}
		if res.Report.ResumeTruncated || res.Report.JobDescriptionTruncated {
			b.WriteString("note: inputs were truncated to fit the prompt\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
