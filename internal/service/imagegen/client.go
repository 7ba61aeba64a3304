package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"beyond-pages/internal/config"
	"beyond-pages/pkg/logger"
)

// maxResponseBytes bounds the JSON body; a base64 1024x1024 PNG is a few MB
const maxResponseBytes = 32 << 20

type generateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

// generateResponse represents the image API response
type generateResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls a third-party image-generation API
type Client struct {
	config     config.ImageConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new image generation client
func NewClient(cfg config.ImageConfig, logger *logger.Logger) *Client {
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		logger: logger,
	}
}

// Generate requests one image for prompt and returns the decoded bytes.
// Failures are returned as is; callers do not retry.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	jsonBody, err := json.Marshal(generateRequest{
		Model:          c.config.Model,
		Prompt:         prompt,
		N:              1,
		Size:           c.config.Size,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call image API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var genResp generateResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &genResp) == nil && genResp.Error != nil {
			return nil, fmt.Errorf("image API returned status %d: %s", resp.StatusCode, genResp.Error.Message)
		}
		return nil, fmt.Errorf("image API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, &genResp); err != nil {
		c.logger.WithField("status_code", resp.StatusCode).Error("Failed to parse image API response")
		return nil, fmt.Errorf("failed to parse image API response: %w", err)
	}
	if len(genResp.Data) == 0 || genResp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("image API returned no image")
	}

	image, err := base64.StdEncoding.DecodeString(genResp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"bytes":    len(image),
		"duration": time.Since(start).String(),
	}).Debug("Generated image")

	return image, nil
}
