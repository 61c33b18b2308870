package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	defaultBaseURL = "https://api.demo.kalshi.com/trade-api/v2"

	// Rate limits al 60% del tier básico: 10 writes/s, 20 reads/s.
	writeRatePerSec = 6
	readRatePerSec  = 12
)

// Client es el HTTP client autenticado de Kalshi.
// No reintenta: los reintentos los decide el dispatcher a partir del
// *domain.VenueError que devuelve cada llamada.
type Client struct {
	http         *http.Client
	baseURL      string
	signer       *Signer
	writeLimiter *rate.Limiter
	readLimiter  *rate.Limiter
}

// NewClient crea un Client. Si baseURL está vacío usa el entorno demo.
func NewClient(baseURL string, signer *Signer) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		signer:       signer,
		writeLimiter: rate.NewLimiter(writeRatePerSec, 2),
		readLimiter:  rate.NewLimiter(readRatePerSec, 5),
	}
}

// do ejecuta una request firmada y decodifica la respuesta JSON en out.
// Los errores se clasifican en transitorios (red, timeout, 429, 5xx) y fatales.
func (c *Client) do(ctx context.Context, limiter *rate.Limiter, op, method, path string, body, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return domain.NewTransientVenueError(op, 0, fmt.Errorf("rate limiter: %w", err))
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return domain.NewFatalVenueError(op, 0, fmt.Errorf("marshal body: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return domain.NewFatalVenueError(op, 0, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return domain.NewFatalVenueError(op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.signer != nil {
		if err := c.signer.Sign(req); err != nil {
			return domain.NewFatalVenueError(op, 0, err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// errores de red y timeouts: el resultado es desconocido, se reintenta
		return domain.NewTransientVenueError(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return domain.NewTransientVenueError(op, resp.StatusCode, apiErr)
		}
		return domain.NewFatalVenueError(op, resp.StatusCode, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewFatalVenueError(op, resp.StatusCode, errors.New("empty response"))
		}
		return domain.NewFatalVenueError(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
