package oracle

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

	"github.com/charmbracelet/log"
)

// HTTP paths served by Handler and called by HTTPClient.
const (
	requestsPath = "/oracle/requests"
)

type requestBody struct {
	Seed Seed `json:"seed"`
}

type requestResponse struct {
	RequestID string `json:"request_id"`
}

type statusResponse struct {
	Seed       Seed   `json:"seed"`
	Fulfilled  bool   `json:"fulfilled"`
	Randomness []byte `json:"randomness,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPClient talks to a remote oracle over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPClient creates a client for the oracle at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Request(ctx context.Context, seed Seed) (string, error) {
	body, err := json.Marshal(requestBody{Seed: seed})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var resp requestResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+requestsPath, body, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

func (c *HTTPClient) IsFulfilled(ctx context.Context, seed Seed) (bool, error) {
	status, err := c.status(ctx, seed)
	if err != nil {
		return false, err
	}
	return status.Fulfilled, nil
}

func (c *HTTPClient) Randomness(ctx context.Context, seed Seed) ([]byte, error) {
	status, err := c.status(ctx, seed)
	if err != nil {
		return nil, err
	}
	if !status.Fulfilled {
		return nil, fmt.Errorf("%w: %s", ErrNotFulfilled, seed)
	}
	if len(status.Randomness) != RandomnessSize {
		return nil, fmt.Errorf("%w: randomness is %d bytes", ErrUnavailable, len(status.Randomness))
	}
	return status.Randomness, nil
}

func (c *HTTPClient) status(ctx context.Context, seed Seed) (*statusResponse, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+requestsPath+"/"+seed.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, 1<<20)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrAlreadyRequested, readError(limited))
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrUnknownRequest, readError(limited))
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	return nil
}

func readError(r io.Reader) string {
	var e errorResponse
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return "no detail"
	}
	return e.Error
}

// Handler serves an Oracle over HTTP in the format HTTPClient expects.
type Handler struct {
	oracle Oracle
	logger *log.Logger
}

// NewHandler wraps an oracle for HTTP serving.
func NewHandler(o Oracle, logger *log.Logger) *Handler {
	return &Handler{oracle: o, logger: logger.WithPrefix("oracle-http")}
}

// Register mounts the oracle routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+requestsPath, h.handleRequest)
	mux.HandleFunc("GET "+requestsPath+"/{seed}", h.handleStatus)
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	id, err := h.oracle.Request(r.Context(), body.Seed)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestResponse{RequestID: id})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	seed, err := ParseSeed(r.PathValue("seed"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	resp := statusResponse{Seed: seed}
	value, err := h.oracle.Randomness(r.Context(), seed)
	switch {
	case err == nil:
		resp.Fulfilled = true
		resp.Randomness = value
	case errors.Is(err, ErrNotFulfilled):
	default:
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrAlreadyRequested):
		status = http.StatusConflict
	case errors.Is(err, ErrUnknownRequest):
		status = http.StatusNotFound
	default:
		h.logger.Error("Oracle request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // Ignore write errors; the client sees a truncated body
}
