package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/translens/translens/internal/errors"

	"github.com/translens/translens/internal/core"
	"github.com/translens/translens/internal/core/engine"
	"github.com/translens/translens/internal/core/translator"
)

// TranslationAPI bundles the governor and request defaults behind the HTTP
// surface. Callers may override endpoint, key, and target language per
// request; blanks fall back to the configured defaults.
type TranslationAPI struct {
	Governor              *engine.Governor
	DefaultEndpoint       string
	DefaultAPIKey         string
	DefaultTargetLanguage string
}

var translationAPI *TranslationAPI

// InitTranslationAPI installs the API used by the translation handlers.
func InitTranslationAPI(api *TranslationAPI) {
	translationAPI = api
}

// GetTranslationAPI returns the installed API (nil before serve wiring).
func GetTranslationAPI() *TranslationAPI {
	return translationAPI
}

// TranslateRequest is the request body for POST /api/v1/translate.
// Field names mirror the extension messaging contract.
type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	Endpoint       string `json:"apiUrl"`
	APIKey         string `json:"apiKey"`
}

// TranslateResponse is the response body for POST /api/v1/translate.
type TranslateResponse struct {
	TranslatedText string          `json:"translatedText"`
	Provenance     core.Provenance `json:"provenance"`
}

// TestConnectionRequest is the request body for POST /api/v1/test-connection.
type TestConnectionRequest struct {
	Endpoint string `json:"apiUrl"`
	APIKey   string `json:"apiKey"`
}

// TestConnectionResponse reports a connectivity probe outcome.
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TranslateHandler resolves one translation through the governor.
func TranslateHandler(w http.ResponseWriter, r *http.Request) {
	api := translationAPI
	if api == nil || api.Governor == nil {
		respondWithError(w, r, apperrors.NewInternalError("translation API not initialized"))
		return
	}

	var body TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be valid JSON"))
		return
	}

	req := api.resolveRequest(body)
	result, err := api.Governor.HandleTranslate(r.Context(), req)
	if err != nil {
		respondWithError(w, r, apperrors.FromTranslationError(r.Context(), err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(TranslateResponse{
		TranslatedText: result.TranslatedText,
		Provenance:     result.Provenance,
	})
}

// TestConnectionHandler probes the configured backend through the governor.
// The probe shares the translation quota window.
func TestConnectionHandler(w http.ResponseWriter, r *http.Request) {
	api := translationAPI
	if api == nil || api.Governor == nil {
		respondWithError(w, r, apperrors.NewInternalError("translation API not initialized"))
		return
	}

	// An empty body means "probe the configured defaults".
	var body TestConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be valid JSON"))
		return
	}

	endpoint := strings.TrimSpace(body.Endpoint)
	if endpoint == "" {
		endpoint = api.DefaultEndpoint
	}
	apiKey := body.APIKey
	if apiKey == "" {
		apiKey = api.DefaultAPIKey
	}

	result := api.Governor.HandleTestConnection(r.Context(), endpoint, apiKey)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(TestConnectionResponse{
		Success: result.Success,
		Message: result.Message,
	})
}

func (api *TranslationAPI) resolveRequest(body TranslateRequest) translator.Request {
	req := translator.Request{
		Text:           body.Text,
		TargetLanguage: strings.TrimSpace(body.TargetLanguage),
		Endpoint:       strings.TrimSpace(body.Endpoint),
		APIKey:         body.APIKey,
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = api.DefaultTargetLanguage
	}
	if req.Endpoint == "" {
		req.Endpoint = api.DefaultEndpoint
	}
	if req.APIKey == "" {
		req.APIKey = api.DefaultAPIKey
	}
	return req
}
