package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/usecase"
)

func newClassifyCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file.pdf>...",
		Short: "Classify files and print one JSON line per document, in argument order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withCancel(cmd)
			defer cancel()

			docs := make([]domain.Document, 0, len(args))
			var unreadable []domain.BatchItem
			for i, p := range args {
				doc, err := readDocument(p)
				if err != nil {
					unreadable = append(unreadable, domain.BatchItem{Index: i, Error: classificationError(p, err)})
					continue
				}
				docs = append(docs, doc)
			}

			report := usecase.NewBatchUseCase(state.classifier).ClassifyBatch(ctx, docs)
			items := mergeItems(len(args), unreadable, report.Items)

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, item := range items {
				var line any = item.Result
				if item.Error != nil {
					line = map[string]string{"filename": item.Error.Filename, "detail": item.Error.Detail}
				}
				if err := enc.Encode(line); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
			}
			return state.writeReport(reportFromItems(items))
		},
	}
}

// mergeItems slots classified items back around files that could not be read,
// restoring argument order.
func mergeItems(total int, unreadable, classified []domain.BatchItem) []domain.BatchItem {
	out := make([]domain.BatchItem, 0, total)
	next := 0
	for i := 0; i < total; i++ {
		if len(unreadable) > 0 && unreadable[0].Index == i {
			out = append(out, unreadable[0])
			unreadable = unreadable[1:]
			continue
		}
		item := classified[next]
		item.Index = i
		out = append(out, item)
		next++
	}
	return out
}
