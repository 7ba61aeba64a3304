package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beyond-pages/internal/config"
	"beyond-pages/pkg/logger"
)

func TestClient_Generate(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")

	tests := []struct {
		name           string
		serverResponse interface{}
		serverStatus   int
		expected       []byte
		errorContains  string
	}{
		{
			name: "successful generation",
			serverResponse: map[string]interface{}{
				"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
			},
			serverStatus: http.StatusOK,
			expected:     png,
		},
		{
			name: "api error message",
			serverResponse: map[string]interface{}{
				"error": map[string]string{"message": "content policy violation"},
			},
			serverStatus:  http.StatusBadRequest,
			errorContains: "content policy violation",
		},
		{
			name:           "server error without body",
			serverResponse: "oops",
			serverStatus:   http.StatusInternalServerError,
			errorContains:  "image API returned status 500",
		},
		{
			name:           "empty data",
			serverResponse: map[string]interface{}{"data": []interface{}{}},
			serverStatus:   http.StatusOK,
			errorContains:  "no image",
		},
		{
			name: "invalid base64",
			serverResponse: map[string]interface{}{
				"data": []map[string]string{{"b64_json": "!!!"}},
			},
			serverStatus:  http.StatusOK,
			errorContains: "failed to decode image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				var body generateRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "A book cover for Dune", body.Prompt)
				assert.Equal(t, "test-model", body.Model)
				assert.Equal(t, 1, body.N)
				assert.Equal(t, "b64_json", body.ResponseFormat)

				w.WriteHeader(tt.serverStatus)
				_ = json.NewEncoder(w).Encode(tt.serverResponse)
			}))
			defer server.Close()

			client := NewClient(config.ImageConfig{APIURL: server.URL, APIKey: "test-key", Model: "test-model"}, logger.Nop())
			image, err := client.Generate(context.Background(), "A book cover for Dune")

			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Nil(t, image)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, image)
		})
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(config.ImageConfig{APIURL: server.URL, APIKey: "k"}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	image, err := client.Generate(ctx, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call image API")
	assert.Nil(t, image)
}
