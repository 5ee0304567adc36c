// Package gemini extracts payments from a billing list and a bank
// statement with the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/ledger"
	"github.com/agentstation/concilia/pkg/logging"
)

const provider = "gemini"

// Config configures the extractor.
type Config struct {
	APIKey string
	// Model is "flash", "pro" or a full model name.
	Model   string
	Timeout time.Duration
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// ResolveModel maps the short names to model names.
func ResolveModel(model string) string {
	switch strings.ToLower(strings.TrimSpace(model)) {
	case "", "flash":
		return constants.ModelFlash
	case "pro":
		return constants.ModelPro
	default:
		return model
	}
}

// Extractor implements extract.Extractor.
type Extractor struct {
	cfg Config

	mu     sync.Mutex
	client *genai.Client
}

var _ extract.Extractor = (*Extractor)(nil)

// New validates cfg and returns an extractor. The API client is created on
// first use.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, &errors.ConfigError{
			Component: provider,
			Message:   "extract.api_key is not set (or API_KEY / GEMINI_API_KEY)",
			Err:       errors.ErrAPIKeyRequired,
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.ExtractTimeout
	}
	cfg.Model = ResolveModel(cfg.Model)
	return &Extractor{cfg: cfg}, nil
}

// Model returns the model name in use.
func (e *Extractor) Model() string {
	return e.cfg.Model
}

func (e *Extractor) genaiClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:     genai.BackendGeminiAPI,
		APIKey:      e.cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{BaseURL: e.cfg.BaseURL},
	})
	if err != nil {
		return nil, errors.NewConfigError(provider, "failed to create client", err)
	}
	e.client = client
	return client, nil
}

// Extract sends both documents and the known clients to the model and
// returns the validated records. An unparseable answer yields an empty
// result.
func (e *Extractor) Extract(ctx context.Context, billing, statement extract.Document, known []ledger.Client) (*extract.Result, error) {
	for _, d := range []extract.Document{billing, statement} {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	log := logging.FromContext(ctx).With().Str("provider", provider).Str("model", e.cfg.Model).Logger()

	client, err := e.genaiClient(ctx)
	if err != nil {
		return nil, err
	}

	prompt, err := buildPrompt(known)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, e.cfg.Model, contents(prompt, billing, statement), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return nil, e.wrapError(ctx, err)
	}

	raw, err := parseResponse(resp.Text())
	if err != nil {
		log.Warn().Err(err).Msg("model answer is not valid JSON, treating as empty")
		return &extract.Result{}, nil
	}

	result, rejected := extract.Convert(raw)
	for _, r := range rejected {
		log.Warn().Str("kind", r.Kind).Int("index", r.Index).Str("reason", r.Reason).Msg("dropped extracted record")
	}
	log.Info().
		Int("payments", len(result.Payments)).
		Int("new_clients", len(result.NewClients)).
		Int("rejected", len(rejected)).
		Dur("elapsed", time.Since(start)).
		Msg("extraction finished")
	return result, nil
}

func (e *Extractor) wrapError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.NewTimeoutError("extract", e.cfg.Timeout.String(), err.Error())
	}
	if ctx.Err() == context.Canceled {
		return errors.Join(errors.ErrCanceled, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &errors.APIError{
			Provider:   provider,
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Endpoint:   e.cfg.Model,
			Err:        err,
		}
	}
	return errors.WrapAPI(provider, 0, err)
}

func contents(prompt string, billing, statement extract.Document) []*genai.Content {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromText(billingHeading),
		documentPart(billing),
		genai.NewPartFromText(statementHeading),
		documentPart(statement),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func documentPart(d extract.Document) *genai.Part {
	if d.Kind() == extract.KindBinary {
		return genai.NewPartFromBytes(d.Data(), d.MIMEType())
	}
	return genai.NewPartFromText(d.Text())
}

func parseResponse(text string) (extract.RawResult, error) {
	var raw extract.RawResult
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if text == "" {
		return raw, errors.NewParseError("json", "", "empty answer", nil)
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return raw, errors.WrapParse("json", "", err)
	}
	return raw, nil
}
