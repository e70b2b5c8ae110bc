package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	c, err := NewClient(&config.OpenAIConfig{
		APIKey:       "test-key",
		Model:        "gpt-test",
		BaseURL:      baseURL,
		MaxRetries:   retries,
		RateLimitRPM: -1,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenAIConfig{})
	assert.Error(t, err)

	_, err = NewClient(nil)
	assert.Error(t, err)
}

func TestExtractMedication_ReturnsOutputText(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":[{"type":"message","content":[{"type":"output_text","text":"{\"brand_name\":\"Advil\"}"}]}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 0)
	text, err := client.ExtractMedication(context.Background(), &entities.ExtractionRequest{
		Text:     "ADVIL 200mg ibuprofen",
		Language: "es",
		Region:   "us",
	})

	require.NoError(t, err)
	assert.Equal(t, `{"brand_name":"Advil"}`, text)
	assert.Equal(t, "gpt-test", captured["model"])

	input, ok := captured["input"].([]interface{})
	require.True(t, ok)
	require.Len(t, input, 2)
	user := input[1].(map[string]interface{})["content"].(string)
	assert.Contains(t, user, "Spanish")
	assert.Contains(t, user, "region US")
	assert.Contains(t, user, "ADVIL 200mg ibuprofen")
}

func TestExtractMedication_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, providers.ErrExtractionUnauthorized},
		{"forbidden", http.StatusForbidden, `{}`, providers.ErrExtractionUnauthorized},
		{"rate limited", http.StatusTooManyRequests, `{}`, providers.ErrExtractionQuotaExceeded},
		{"quota body", http.StatusBadRequest, `{"error":{"code":"insufficient_quota"}}`, providers.ErrExtractionQuotaExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL, 0).ExtractMedication(context.Background(), &entities.ExtractionRequest{Text: "anything"})
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestExtractMedication_RetriesServerErrorsWhenConfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL, 1).ExtractMedication(context.Background(), &entities.ExtractionRequest{Text: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestExtractMedication_SingleShotByDefault(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL, 0).ExtractMedication(context.Background(), &entities.ExtractionRequest{Text: "anything"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOutputText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"responses envelope", `{"output":[{"content":[{"type":"reasoning"},{"type":"output_text","text":"hello"}]}]}`, "hello"},
		{"chat envelope", `{"choices":[{"message":{"content":"hi"}}]}`, "hi"},
		{"empty output", `{"output":[]}`, ""},
		{"not json", `<html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputText([]byte(tt.raw)))
		})
	}
}

func TestBuildMedicationUserPrompt_BarcodeOnly(t *testing.T) {
	prompt := buildMedicationUserPrompt(&entities.ExtractionRequest{Barcode: " 4006381333931 "})
	assert.Contains(t, prompt, "English")
	assert.Contains(t, prompt, "Barcode on the package: 4006381333931")
	assert.NotContains(t, prompt, "region")
}
