// Package verdict holds the handwriting prompt shared by every vision provider
// and turns model replies into domain signals.
package verdict

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

const Prompt = `Look at this document image. Is this a handwritten note?
Answer "YES" if the page is mostly handwritten, "NO" if it is typed, printed or something else,
or "UNSURE" if the image is unreadable.
Return strict JSON: {"verdict": "YES" | "NO" | "UNSURE", "rationale": "<one short sentence>"}.
No markdown, no extra keys.`

// Schema is the JSON schema a reply must satisfy.
var Schema = map[string]any{
	"type":     "object",
	"required": []string{"verdict"},
	"properties": map[string]any{
		"verdict": map[string]any{
			"type": "string",
			"enum": []string{"YES", "NO", "UNSURE"},
		},
		"rationale": map[string]any{"type": "string"},
	},
	"additionalProperties": false,
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(Schema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("handwriting_verdict.json", bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("handwriting_verdict.json")
	})
	return compiled, compileErr
}

type reply struct {
	Verdict   string `json:"verdict"`
	Rationale string `json:"rationale"`
}

// Parse accepts a JSON reply or a bare YES/NO answer.
func Parse(raw string) (domain.HandwritingSignal, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.HandwritingSignal{}, errors.New("empty model reply")
	}

	object := extractJSONObject(text)
	if object == "" {
		return parseBare(text)
	}

	s, err := schema()
	if err != nil {
		return domain.HandwritingSignal{}, err
	}
	var v any
	if err := json.Unmarshal([]byte(object), &v); err != nil {
		return domain.HandwritingSignal{}, fmt.Errorf("unmarshal verdict: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return domain.HandwritingSignal{}, fmt.Errorf("verdict does not match schema: %w", err)
	}

	var r reply
	if err := json.Unmarshal([]byte(object), &r); err != nil {
		return domain.HandwritingSignal{}, fmt.Errorf("decode verdict: %w", err)
	}
	return domain.HandwritingSignal{Verdict: toVerdict(r.Verdict), Rationale: strings.TrimSpace(r.Rationale)}, nil
}

func parseBare(text string) (domain.HandwritingSignal, error) {
	word := strings.ToUpper(strings.Trim(strings.Fields(text)[0], ".,!\"'`"))
	switch word {
	case "YES", "NO", "UNSURE":
		return domain.HandwritingSignal{Verdict: toVerdict(word), Rationale: text}, nil
	default:
		return domain.HandwritingSignal{}, fmt.Errorf("unrecognized model reply %q", truncate(text, 80))
	}
}

func toVerdict(v string) domain.Verdict {
	switch v {
	case "YES":
		return domain.VerdictPositive
	case "NO":
		return domain.VerdictNegative
	default:
		return domain.VerdictInconclusive
	}
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
