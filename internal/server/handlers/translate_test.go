package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/translens/translens/internal/core"
	"github.com/translens/translens/internal/core/engine"
	"github.com/translens/translens/internal/core/translator"
)

type scriptedProvider struct {
	translated string
	err        error

	lastRequest translator.Request
	testResult  translator.TestResult
}

func (p *scriptedProvider) Translate(ctx context.Context, req translator.Request) (string, error) {
	p.lastRequest = req
	if p.err != nil {
		return "", p.err
	}
	return p.translated, nil
}

func (p *scriptedProvider) TestConnection(ctx context.Context, endpoint, apiKey string) translator.TestResult {
	p.lastRequest = translator.Request{Endpoint: endpoint, APIKey: apiKey}
	return p.testResult
}

func installAPI(t *testing.T, provider translator.Provider, capacity int) *scriptedProvider {
	t.Helper()

	sp, _ := provider.(*scriptedProvider)
	api := &TranslationAPI{
		Governor: &engine.Governor{
			Limiter:  engine.NewLimiter(capacity, time.Minute),
			Provider: provider,
		},
		DefaultEndpoint:       "https://translate.example.com/translate",
		DefaultAPIKey:         "default-key",
		DefaultTargetLanguage: "es",
	}
	InitTranslationAPI(api)
	t.Cleanup(func() { InitTranslationAPI(nil) })
	return sp
}

func TestTranslateHandlerSuccess(t *testing.T) {
	provider := installAPI(t, &scriptedProvider{translated: "hola"}, 8)

	body := `{"text":"hello","targetLanguage":"es","apiUrl":"https://lt.local/translate","apiKey":"k"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(body))
	rec := httptest.NewRecorder()

	TranslateHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result TranslateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "hola", result.TranslatedText)
	assert.Equal(t, core.SourceBackend, result.Provenance.Source)
	assert.Equal(t, "https://lt.local/translate", provider.lastRequest.Endpoint)
}

func TestTranslateHandlerAppliesDefaults(t *testing.T) {
	provider := installAPI(t, &scriptedProvider{translated: "hola"}, 8)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()

	TranslateHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://translate.example.com/translate", provider.lastRequest.Endpoint)
	assert.Equal(t, "default-key", provider.lastRequest.APIKey)
	assert.Equal(t, "es", provider.lastRequest.TargetLanguage)
}

func TestTranslateHandlerRejectsBadJSON(t *testing.T) {
	installAPI(t, &scriptedProvider{translated: "hola"}, 8)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	TranslateHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateHandlerDeniedReturns429(t *testing.T) {
	installAPI(t, &scriptedProvider{translated: "hola"}, 1)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"one"}`))
	TranslateHandler(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"two"}`))
	rec := httptest.NewRecorder()
	TranslateHandler(rec, second)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Rate limit reached. Try again in")
}

func TestTranslateHandlerUpstreamFailureReturns502(t *testing.T) {
	installAPI(t, &scriptedProvider{err: &translator.UpstreamError{StatusCode: 500, Message: "boom"}}, 8)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()

	TranslateHandler(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTranslateHandlerUninitialized(t *testing.T) {
	InitTranslationAPI(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()

	TranslateHandler(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTestConnectionHandlerUsesDefaultsOnEmptyBody(t *testing.T) {
	provider := installAPI(t, &scriptedProvider{testResult: translator.TestResult{Success: true, Message: "Connection successful!"}}, 8)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test-connection", nil)
	rec := httptest.NewRecorder()

	TestConnectionHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TestConnectionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Connection successful!", resp.Message)
	assert.Equal(t, "https://translate.example.com/translate", provider.lastRequest.Endpoint)
}

func TestTestConnectionHandlerSharesQuotaWindow(t *testing.T) {
	installAPI(t, &scriptedProvider{testResult: translator.TestResult{Success: true, Message: "Connection successful!"}}, 1)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/test-connection", nil)
	TestConnectionHandler(httptest.NewRecorder(), first)

	rec := httptest.NewRecorder()
	translateReq := httptest.NewRequest(http.MethodPost, "/api/v1/translate", strings.NewReader(`{"text":"hello"}`))
	TranslateHandler(rec, translateReq)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestQuotaHandlerReportsWithoutConsuming(t *testing.T) {
	installAPI(t, &scriptedProvider{translated: "hola"}, 3)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		QuotaHandler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/quota", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp QuotaResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 3, resp.RemainingRequests)
		assert.Nil(t, resp.WaitTime)
	}
}
