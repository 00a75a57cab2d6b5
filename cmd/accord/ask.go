package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"accord/internal/app"
	"accord/internal/attachments"
	"accord/internal/config"
	"accord/internal/consensus"
)

func newAskCommand() *cobra.Command {
	var (
		mode       string
		iterations int
		filePaths  []string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run one consensus session and stream its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.Getenv("ACCORD_CONFIG_FILE"))
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Mode = mode
			}
			if iterations > 0 {
				cfg.Iterations = iterations
			}

			application, err := app.New(cfg)
			if err != nil {
				return err
			}

			question, err := attachFiles(application, args[0], filePaths)
			if err != nil {
				return err
			}

			result, err := application.Engine.Run(cmd.Context(), question, application.SessionOptions(), renderSink())
			if err != nil {
				return err
			}

			fmt.Println()
			if result.Consensus {
				color.Green("Consensus (round %d, %d calls, confidence %.2f)", result.Iterations, result.CallCount, result.Confidence)
			} else {
				color.Yellow("Best effort, no consensus (%d rounds, %d calls)", result.Iterations, result.CallCount)
			}
			fmt.Println()
			fmt.Println(result.Answer.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "session mode: fast or robust")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "robust-mode round cap (1-20)")
	cmd.Flags().StringSliceVar(&filePaths, "file", nil, "attach a file (repeatable)")
	return cmd
}

func attachFiles(application *app.App, question string, paths []string) (string, error) {
	if len(paths) == 0 {
		return question, nil
	}
	files := make([]attachments.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		text, err := application.Extractor.Extract(path, data)
		if err != nil {
			return "", err
		}
		files = append(files, attachments.File{Name: path, Text: text})
	}
	return attachments.BuildQueryText(question, files), nil
}

func renderSink() consensus.Sink {
	dim := color.New(color.Faint)
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)

	return consensus.SinkFunc(func(event consensus.Event) {
		switch event.Type {
		case consensus.EventStatus:
			dim.Printf("  %s\n", event.Message)
		case consensus.EventIteration:
			cyan.Printf("Round %d\n", event.Iteration)
		case consensus.EventStep:
			dim.Printf("  [%s] %s\n", event.Agent, event.Message)
		case consensus.EventAnswer:
			suffix := ""
			if event.Truncated {
				suffix = " (looks truncated)"
			}
			fmt.Printf("  [%s] answered%s\n", event.Agent, suffix)
		case consensus.EventReview:
			if event.Review == nil {
				dim.Printf("  [%s] review of %s unparseable\n", event.Reviewer, event.Agent)
				return
			}
			fmt.Printf("  [%s] reviewed %s: %s (confidence %.2f, similarity %.2f)\n",
				event.Reviewer, event.Agent, event.Review.Decision, event.Review.Confidence, event.Similarity)
		case consensus.EventError:
			red.Printf("  error: %s\n", event.Message)
		}
	})
}
