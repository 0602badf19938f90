package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/entrhq/webpilot/pkg/agent"
	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/llm/openai"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/store"
)

type runOptions struct {
	goal       string
	configFile string
	startURL   string
	headful    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a run and follow it to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.goal, "goal", "g", "", "Natural-language goal for the agent (required)")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML configuration file")
	cmd.Flags().StringVar(&opts.startURL, "url", "", "URL to open before the loop starts")
	cmd.Flags().BoolVar(&opts.headful, "headful", false, "Show the browser window")
	_ = cmd.MarkFlagRequired("goal")

	return cmd
}

func executeRun(opts *runOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: session log unavailable: %v\n", err)
	}
	defer logger.Close()

	s, err := store.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	session, err := browser.NewSession(cfg.Browser)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Close()

	if opts.startURL != "" {
		if err := session.Navigate(opts.startURL); err != nil {
			return fmt.Errorf("failed to open %s: %w", opts.startURL, err)
		}
	}

	providerOpts := []openai.ProviderOption{openai.WithModel(cfg.Planner.Model)}
	if cfg.Planner.BaseURL != "" {
		providerOpts = append(providerOpts, openai.WithBaseURL(cfg.Planner.BaseURL))
	}
	provider, err := openai.NewProvider(os.Getenv(cfg.Planner.APIKeyEnv), providerOpts...)
	if err != nil {
		return fmt.Errorf("failed to create planner provider: %w", err)
	}

	manager, err := agent.NewManager(s, session, provider, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create run manager: %w", err)
	}

	runID, err := manager.Start(opts.goal)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s started\n", runID)
	fmt.Printf("Session log: %s\n", logger.LogPath())

	// First interrupt requests a graceful stop; the active iteration is
	// allowed to finish.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping after the current iteration...")
		if stopErr := manager.Stop(); stopErr != nil {
			fmt.Fprintf(os.Stderr, "Stop failed: %v\n", stopErr)
		}
	}()

	<-manager.Done()

	run, err := s.GetRun(runID)
	if err != nil {
		return fmt.Errorf("failed to load final run state: %w", err)
	}

	fmt.Printf("\nRun %s finished: %s\n", run.ID, run.Status)
	if run.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", run.ErrorMessage)
	}
	fmt.Printf("Memory entries: %d (%d actions)\n", run.MemoryCount, run.ActionCount)

	return nil
}

func loadConfig(opts *runOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.headful {
		cfg.Browser.Headless = false
	}
	return cfg, nil
}
