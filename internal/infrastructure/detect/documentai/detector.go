// Package documentai detects identity documents with a Google Document AI
// custom classifier that labels documents PASS or NOT_AN_ID.
package documentai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	documentai "google.golang.org/api/documentai/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/infrastructure/resilience"
)

const (
	labelID    = "PASS"
	labelNotID = "NOT_AN_ID"

	DefaultLocation = "us"
)

type Config struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsJSON string
	// Endpoint overrides the regional endpoint.
	Endpoint string
}

func (c Config) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

type Detector struct {
	cfg      Config
	service  *documentai.Service
	executor *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor, opts ...option.ClientOption) (*Detector, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" || strings.TrimSpace(cfg.ProcessorID) == "" {
		return nil, fmt.Errorf("documentai: project id and processor id are required")
	}
	if strings.TrimSpace(cfg.Location) == "" {
		cfg.Location = DefaultLocation
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = fmt.Sprintf("https://%s-documentai.googleapis.com/", cfg.Location)
	}

	clientOpts := []option.ClientOption{option.WithEndpoint(cfg.Endpoint)}
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := documentai.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create documentai service: %w", err)
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig().SingleAttempt())
	}
	return &Detector{cfg: cfg, service: service, executor: executor}, nil
}

func (d *Detector) DetectID(ctx context.Context, doc domain.Document) (domain.IDSignal, error) {
	if len(doc.Content) == 0 {
		return domain.IDSignal{}, domain.WrapError(domain.ErrInvalidInput, "documentai process", errors.New("empty document"))
	}

	req := &documentai.GoogleCloudDocumentaiV1ProcessRequest{
		RawDocument: &documentai.GoogleCloudDocumentaiV1RawDocument{
			Content:  base64.StdEncoding.EncodeToString(doc.Content),
			MimeType: "application/pdf",
		},
	}

	resp, err := resilience.Call(ctx, d.executor, "documentai.process",
		func(callCtx context.Context) (*documentai.GoogleCloudDocumentaiV1ProcessResponse, error) {
			resp, err := d.service.Projects.Locations.Processors.Process(d.cfg.processorName(), req).Context(callCtx).Do()
			if err != nil {
				return nil, asStatusError(err)
			}
			return resp, nil
		},
		resilience.ClassifyTransportError,
	)
	if err != nil {
		return domain.IDSignal{}, resilience.WrapServiceError("documentai process", err)
	}
	if resp == nil || resp.Document == nil {
		return domain.IDSignal{Verdict: domain.VerdictInconclusive}, nil
	}
	return signalFromEntities(resp.Document.Entities), nil
}

// signalFromEntities picks the most confident PASS / NOT_AN_ID entity.
func signalFromEntities(entities []*documentai.GoogleCloudDocumentaiV1DocumentEntity) domain.IDSignal {
	best := domain.IDSignal{Verdict: domain.VerdictInconclusive}
	found := false
	for _, entity := range entities {
		if entity == nil {
			continue
		}
		label := strings.ToUpper(strings.TrimSpace(entity.MentionText))
		if label == "" {
			label = strings.ToUpper(strings.TrimSpace(entity.Type))
		}

		var v domain.Verdict
		switch label {
		case labelID:
			v = domain.VerdictPositive
		case labelNotID:
			v = domain.VerdictNegative
		default:
			continue
		}

		// processors that omit confidence still commit to a label
		confidence := entity.Confidence
		if confidence <= 0 {
			confidence = 1
		}
		if !found || confidence > best.Confidence {
			best = domain.IDSignal{Verdict: v, Confidence: confidence, Label: label}
			found = true
		}
	}
	return best
}

// asStatusError maps API errors onto the shared status error so the transport
// classifier can tell transient failures apart.
func asStatusError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return &resilience.StatusError{
		Service:    "documentai",
		Operation:  "process",
		StatusCode: apiErr.Code,
		Status:     fmt.Sprintf("%d %s", apiErr.Code, http.StatusText(apiErr.Code)),
		Body:       apiErr.Message,
	}
}
