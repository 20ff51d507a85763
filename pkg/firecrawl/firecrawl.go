package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xhad/tutor/internal/models"
	"github.com/xhad/tutor/pkg/logger"
)

// MinContentLength is the smallest extraction considered usable; pages
// below it are usually bot walls or empty shells.
const MinContentLength = 100

type Config struct {
	APIKey     string
	BaseURL    string
	RateLimit  float64 // requests per second
	HTTPClient *http.Client
}

// Client calls the Firecrawl scrape API to turn a URL into readable
// markdown. Satisfies types.WebExtractor.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

func NewWithConfig(config Config, log *logger.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("firecrawl API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.firecrawl.dev"
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2.0
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	return &Client{
		config:     config,
		httpClient: config.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:        log.With("service", "Firecrawl"),
	}, nil
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Language    string `json:"language"`
			SourceURL   string `json:"sourceURL"`
			StatusCode  int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// ExtractPage scrapes one URL and returns its readable content. Pages
// yielding less than MinContentLength characters are rejected.
func (c *Client) ExtractPage(ctx context.Context, url string) (*models.WebPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(scrapeRequest{URL: url, Formats: []string{"markdown"}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("firecrawl scrape: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("firecrawl scrape failed: %s", parsed.Error)
	}

	content := strings.TrimSpace(parsed.Data.Markdown)
	if len(content) < MinContentLength {
		return nil, fmt.Errorf("insufficient content extracted from %s (%d chars)", url, len(content))
	}

	title := strings.TrimSpace(parsed.Data.Metadata.Title)
	if title == "" {
		title = url
	}

	sourceURL := parsed.Data.Metadata.SourceURL
	if sourceURL == "" {
		sourceURL = url
	}

	c.log.Debug("page extracted", "url", url, "chars", len(content))

	return &models.WebPage{
		Content:     content,
		Title:       title,
		Description: parsed.Data.Metadata.Description,
		SourceURL:   sourceURL,
		Language:    parsed.Data.Metadata.Language,
	}, nil
}
