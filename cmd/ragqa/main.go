package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"ragqa/internal/config"
	"ragqa/internal/service"
	"ragqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		question string
		evaluate bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/ragqa/config.yaml)")
	flag.StringVar(&question, "ask", "", "Answer a single question and exit")
	flag.BoolVar(&evaluate, "eval", false, "Score the answer of -ask with embedding similarity")
	flag.Parse()

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := run(cfg, question, evaluate); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

// run owns every resource opened after config load, so the deferred closers
// always execute before main exits.
func run(cfg *config.AppConfig, question string, evaluate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.Default()
	deps, closers, err := buildDeps(cfg, logger)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	svc, err := service.NewInitializer(deps).Get(ctx)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	if question != "" {
		return askOnce(ctx, svc, question, evaluate)
	}

	if f, err := tea.LogToFile("ragqa.log", "ragqa "); err == nil {
		defer f.Close()
	}
	info := fmt.Sprintf("%d chunks indexed · embedder %s · completer %s", svc.IndexSize(), deps.Embedder.Name(), deps.Completer.Name())
	m := tui.New(ctx, svc, info, cfg.Evaluation.Auto)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func askOnce(ctx context.Context, svc *service.Service, question string, evaluate bool) error {
	ans, err := svc.AnswerQuestion(ctx, question)
	if err != nil {
		return err
	}
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	bold.Println("Answer:")
	fmt.Println(ans.Text)
	fmt.Println()
	bold.Println("Contexts:")
	for _, c := range ans.Contexts {
		color.Cyan("[%d] similarity=%.3f %s", c.Rank, c.Similarity, c.SourceURL)
		dim.Println(c.ChunkText)
	}
	if !evaluate {
		return nil
	}
	r := svc.Evaluate(ctx, question, ans.Text, service.ContextTexts(ans.Contexts))
	fmt.Println()
	bold.Println("Evaluation:")
	color.Green("answer_relevancy  %.3f", r.AnswerRelevancy)
	color.Green("context_precision %.3f", r.ContextPrecision)
	color.Green("context_recall    %.3f", r.ContextRecall)
	color.Yellow("global_score      %.3f", r.GlobalScore)
	return nil
}
