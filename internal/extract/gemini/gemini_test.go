package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/concilia/pkg/constants"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/ledger"
)

func answer(t *testing.T, text string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func newTestExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	e, err := New(Config{APIKey: "test-key", Model: "flash", BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return e
}

var known = []ledger.Client{
	{ID: "1", Name: "Maria Silva", BillingStart: ledger.MustYearMonth("2024-01")},
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAPIKeyRequired)
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, constants.ModelFlash, ResolveModel(""))
	assert.Equal(t, constants.ModelFlash, ResolveModel("Flash"))
	assert.Equal(t, constants.ModelPro, ResolveModel("pro"))
	assert.Equal(t, "gemini-custom", ResolveModel("gemini-custom"))
}

func TestExtract(t *testing.T) {
	var request string
	e := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		request = string(body)
		assert.Contains(t, r.URL.Path, constants.ModelFlash)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(answer(t, `{
			"pagamentos": [
				{"clienteId": "1", "mes": 3, "ano": 2025, "valor": 150.5, "dataPagamento": "2025-03-10"},
				{"clienteId": "", "mes": 13, "ano": 2025, "valor": 10, "dataPagamento": "2025-03-10"}
			],
			"novosClientes": [
				{"id": "9", "nome": "Carlos Souza", "inicioCobranca": "2025-03"}
			]
		}`))
	})

	billing := extract.TextDocument("cobranca.csv", "nome;valor\nMaria Silva;150,50")
	statement := extract.BinaryDocument("extrato.pdf", "application/pdf", []byte("%PDF-1.4"))

	res, err := e.Extract(context.Background(), billing, statement, known)
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)
	assert.Equal(t, "1", res.Payments[0].ClientID)
	assert.Equal(t, "150.5", res.Payments[0].Amount.String())
	require.Len(t, res.NewClients, 1)
	assert.Equal(t, "Carlos Souza", res.NewClients[0].Name)

	assert.Contains(t, request, "Maria Silva")
	assert.Contains(t, request, "DOCUMENTO 1")
	assert.Contains(t, request, "DOCUMENTO 2")
	assert.Contains(t, request, "application/pdf")
	assert.Contains(t, request, "novosClientes")
}

func TestExtractUnparseableAnswer(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(answer(t, "sorry, I cannot help"))
	})

	res, err := e.Extract(context.Background(),
		extract.TextDocument("a.csv", "x"), extract.TextDocument("b.csv", "y"), known)
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
}

func TestExtractAPIError(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := e.Extract(context.Background(),
		extract.TextDocument("a.csv", "x"), extract.TextDocument("b.csv", "y"), known)
	require.Error(t, err)
	assert.True(t, errors.IsRateLimited(err))

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "gemini", apiErr.Provider)
}

func TestExtractRejectsEmptyDocument(t *testing.T) {
	e := newTestExtractor(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := e.Extract(context.Background(),
		extract.TextDocument("a.csv", ""), extract.TextDocument("b.csv", "y"), known)
	assert.True(t, errors.IsValidationError(err))
}

func TestParseResponseStripsFences(t *testing.T) {
	raw, err := parseResponse("```json\n{\"pagamentos\":[],\"novosClientes\":[{\"id\":\"2\",\"nome\":\"Ana\",\"inicioCobranca\":\"2025-01\"}]}\n```")
	require.NoError(t, err)
	assert.Len(t, raw.NewClients, 1)

	_, err = parseResponse("   ")
	assert.Error(t, err)
}

func TestBuildPromptListsKnownClients(t *testing.T) {
	prompt, err := buildPrompt(known)
	require.NoError(t, err)
	assert.True(t, strings.Contains(prompt, `{"id":"1","nome":"Maria Silva"}`))
	assert.NotContains(t, prompt, "{{KNOWN}}")
}
