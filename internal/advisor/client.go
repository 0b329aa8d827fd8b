package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-mayorista/internal/resilience"
)

// ErrNotConfigured is returned by generators without an endpoint.
var ErrNotConfigured = errors.New("advisor: generator not configured")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// HTTPGenerator calls a generateContent style endpoint.
type HTTPGenerator struct {
	HTTP     resilience.HTTPClient
	Endpoint string
	APIKey   string
	Model    string
}

// NewHTTPTransport returns a transport that propagates trace context to the
// upstream model provider.
func NewHTTPTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return "advisor " + r.Method
	}))
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g HTTPGenerator) url() string {
	return strings.TrimRight(g.Endpoint, "/") + "/models/" + g.Model + ":generateContent"
}

// Generate implements Generator.
func (g HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(g.Endpoint) == "" || g.HTTP.Client == nil {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("x-goog-api-key", g.APIKey)
	}
	resp, err := g.HTTP.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("advisor: generate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("advisor: upstream responded %s", resp.Status)
	}
	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("advisor: decode response: %w", err)
	}
	var sb strings.Builder
	for _, c := range decoded.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
