package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/storage/localfs"
)

func newSortCmd(state *cliState) *cobra.Command {
	var (
		src         string
		dest        string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Copy every PDF in --src into a per-type folder under --dest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withCancel(cmd)
			defer cancel()

			paths, err := collectPDFs(src)
			if err != nil {
				return err
			}
			storage, err := localfs.New(dest)
			if err != nil {
				return err
			}

			items := make([]domain.BatchItem, len(paths))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(concurrency, 1))
			for i, p := range paths {
				g.Go(func() error {
					items[i] = sortOne(gctx, state, storage, i, p)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			report := reportFromItems(items)
			fmt.Fprintf(cmd.OutOrStdout(), "sorted %d documents into %s (%d failed)\n", len(report.Results), dest, len(report.Errors))
			return state.writeReport(report)
		},
	}
	cmd.Flags().StringVar(&src, "src", "samples", "directory with PDFs to classify")
	cmd.Flags().StringVar(&dest, "dest", "classified_pdfs", "directory receiving one folder per document type")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "documents classified in parallel")
	return cmd
}

func sortOne(ctx context.Context, state *cliState, storage *localfs.Storage, index int, p string) domain.BatchItem {
	item := domain.BatchItem{Index: index}

	doc, err := readDocument(p)
	if err != nil {
		item.Error = &domain.ClassificationError{Filename: filepath.Base(p), Detail: err.Error(), Err: err}
		return item
	}

	result, err := state.classifier.Classify(ctx, doc)
	if err != nil {
		item.Error = classificationError(doc.Filename, err)
		slog.Warn("sort_skipped", "filename", doc.Filename, "error", err)
		return item
	}

	key := path.Join(folderFor(result.DocumentType), doc.Filename)
	if err := storage.Save(ctx, key, bytes.NewReader(doc.Content)); err != nil {
		item.Error = &domain.ClassificationError{Filename: doc.Filename, Detail: err.Error(), Err: err}
		return item
	}
	slog.Info("sorted", "filename", doc.Filename, "document_type", result.DocumentType, "year", result.Year, "dest", key)
	item.Result = result
	return item
}

// folderFor names the destination folder; OTHER lands in "Other".
func folderFor(t domain.DocumentType) string {
	if t == domain.TypeOther || t == "" {
		return "Other"
	}
	return string(t)
}

func reportFromItems(items []domain.BatchItem) domain.BatchReport {
	report := domain.BatchReport{
		Items:   items,
		Results: []domain.ClassificationResult{},
		Errors:  []domain.ClassificationError{},
	}
	for _, item := range items {
		switch {
		case item.Result != nil:
			report.Results = append(report.Results, *item.Result)
		case item.Error != nil:
			report.Errors = append(report.Errors, *item.Error)
		}
	}
	return report
}
