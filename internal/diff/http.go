package diff

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type HTTPRenderer struct {
	BaseURL string
	Token   func() (string, error)
	Client  *http.Client
}

func NewHTTPRenderer(baseURL string, token func() (string, error)) *HTTPRenderer {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://localhost:8005"
	}
	return &HTTPRenderer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  http.DefaultClient,
	}
}

func (h *HTTPRenderer) ensureConfigured() error {
	if h == nil {
		return ErrRendererNotReady
	}
	if strings.TrimSpace(h.BaseURL) == "" {
		return errors.New("diff backend URL is empty")
	}
	return nil
}

func (h *HTTPRenderer) client() *http.Client {
	if h != nil && h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

func (h *HTTPRenderer) RenderDiff(ctx context.Context, response string) (string, error) {
	if err := h.ensureConfigured(); err != nil {
		return "", err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", nil
	}

	reqBody, err := json.Marshal(map[string]string{"response": response})
	if err != nil {
		return "", fmt.Errorf("marshal diff request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/api/diff", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("build diff request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.Token != nil {
		token, err := h.Token()
		if err != nil {
			return "", fmt.Errorf("load diff backend credential: %w", err)
		}
		if token = strings.TrimSpace(token); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("diff backend is unreachable at %s: %w", h.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("diff backend error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res struct {
		Diff string `json:"diff"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode diff response: %w", err)
	}
	return res.Diff, nil
}
