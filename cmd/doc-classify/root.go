package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/document-classifier/internal/bootstrap"
	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/usecase"
	"github.com/kirillkom/document-classifier/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/document-classifier/internal/observability/logging"
)

type cliState struct {
	cfg        config.Config
	classifier *usecase.ClassifyUseCase
	closeFn    func()
	xlsxPath   string
}

func newRootCmd() (*cobra.Command, *cliState) {
	state := &cliState{}

	root := &cobra.Command{
		Use:           "doc-classify",
		Short:         "Classify PDF tax forms, ID cards and handwritten notes",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(logging.NewLogger("doc-classify", cfg.LogLevel, "text"))

			classifier, closeFn, err := bootstrap.NewClassifier(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.classifier = classifier
			state.closeFn = closeFn
			return nil
		},
	}
	root.PersistentFlags().StringVar(&state.xlsxPath, "xlsx", "", "also write an Excel report to this path")

	root.AddCommand(newSortCmd(state), newClassifyCmd(state))
	return root, state
}

// execute runs root and releases the classifier whether or not the command failed.
func execute(root *cobra.Command, state *cliState) error {
	defer state.close()
	return root.Execute()
}

func (s *cliState) close() {
	if s.closeFn != nil {
		s.closeFn()
		s.closeFn = nil
	}
}

func (s *cliState) writeReport(report domain.BatchReport) error {
	if s.xlsxPath == "" {
		return nil
	}
	f, err := os.Create(s.xlsxPath)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := xlsx.WriteReport(f, report); err != nil {
		return err
	}
	slog.Info("report_written", "path", s.xlsxPath, "documents", len(report.Items))
	return nil
}

func readDocument(path string) (domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Document{Filename: filepath.Base(path), Content: content}, nil
}

// collectPDFs lists *.pdf files directly under dir, sorted by name.
func collectPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func withCancel(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithCancel(cmd.Context())
}

func classificationError(filename string, err error) *domain.ClassificationError {
	var clsErr *domain.ClassificationError
	if errors.As(err, &clsErr) {
		return clsErr
	}
	return &domain.ClassificationError{Filename: filename, Detail: err.Error(), Err: err}
}
