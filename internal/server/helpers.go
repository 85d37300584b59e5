package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HealthURL turns a server URL in any of the forms clients use
// (ws://host:port/ws, http://host:port) into its /health endpoint.
func HealthURL(serverURL string) (string, error) {
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String(), nil
}

// WaitForHealthy polls the /health endpoint until it returns 200 OK or the context is cancelled.
func WaitForHealthy(ctx context.Context, serverURL string) error {
	healthURL, err := HealthURL(serverURL)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 1 * time.Second}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			resp, err := client.Get(healthURL)
			if err == nil && resp.StatusCode == http.StatusOK {
				resp.Body.Close()
				return nil
			}
			if resp != nil {
				resp.Body.Close()
			}
		}
	}
}
