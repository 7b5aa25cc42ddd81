// Package fetcher é o colaborador de transporte: busca páginas com headers
// de navegador, timeout e retentativas com backoff. O núcleo de ingestão
// trata qualquer erro daqui como falha de página e nunca retenta por conta
// própria.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36"

// FetchError descreve uma página inalcançável, com o status HTTP quando
// houve resposta.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("buscar %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("buscar %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client busca páginas com um número limitado de tentativas.
type Client struct {
	http    *http.Client
	retries int
	backoff time.Duration
}

// New cria um cliente com o timeout por requisição e o número de
// retentativas dados.
func New(timeout time.Duration, retries int) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		retries: retries,
		backoff: time.Second,
	}
}

// Fetch baixa o corpo da URL. Erros de rede e status 429/5xx são retentados
// com backoff exponencial e jitter; outros status falham direto.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	wait := c.backoff

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(wait / 2)))
			select {
			case <-ctx.Done():
				return nil, &FetchError{URL: url, Err: ctx.Err()}
			case <-time.After(wait + jitter):
			}
			wait *= 2
		}

		body, status, err := c.doGet(ctx, url)
		if err == nil && status == http.StatusOK {
			return body, nil
		}
		if err != nil {
			lastErr = &FetchError{URL: url, Err: err}
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		lastErr = &FetchError{URL: url, StatusCode: status}
		if status != http.StatusTooManyRequests && status < 500 {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
