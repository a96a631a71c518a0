// Package backend предоставляет клиент REST API маркетплейса.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

// Ошибки, которыми клиент классифицирует ответы бэкенда.
var (
	// ErrNotConfigured возвращается, если адрес бэкенда не задан.
	ErrNotConfigured = errors.New("backend client not configured")
	// ErrUnauthorized возвращается, если бэкенд отклонил токен сессии.
	ErrUnauthorized = errors.New("backend rejected credentials")
	// ErrNotFound возвращается, если запрошенный ресурс не найден.
	ErrNotFound = errors.New("backend resource not found")
	// ErrRejected возвращается, если бэкенд отклонил запрос как некорректный.
	ErrRejected = errors.New("backend rejected request")
)

const (
	apiPrefix       = "/api/v1"
	requestTimeout  = 5 * time.Second
	maxResponseSize = 1 << 20
)

// Client инкапсулирует HTTP-взаимодействие с бэкендом маркетплейса.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент бэкенда по указанному адресу.
func NewClient(baseURL string) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = requestTimeout

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
	}
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// call выполняет запрос и возвращает код ответа и тело.
func (c *Client) call(ctx context.Context, s model.Session, method, path string, payload any) (int, []byte, error) {
	if c == nil || c.baseURL == "" {
		return 0, nil, ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, data, nil
}

// statusError переводит код ответа в ошибку пакета.
func statusError(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity || code == http.StatusConflict:
		if msg := errorMessage(body); msg != "" {
			return fmt.Errorf("%w: %s", ErrRejected, msg)
		}
		return ErrRejected
	default:
		return fmt.Errorf("unexpected status: %d", code)
	}
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
