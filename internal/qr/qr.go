// Package qr рендерит PNG с QR-кодом для адреса ссылки.
package qr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultEndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultSize     = 180

	maxImageSize = 1 << 20
)

// Renderer строит PNG-изображение QR-кода.
type Renderer interface {
	Render(ctx context.Context, content string) ([]byte, error)
}

// RemoteRenderer запрашивает картинку у внешнего сервиса QR.
type RemoteRenderer struct {
	Endpoint string
	Size     int
	Client   *http.Client
}

func NewRemoteRenderer(endpoint string, size int) *RemoteRenderer {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &RemoteRenderer{
		Endpoint: endpoint,
		Size:     size,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// URL адрес картинки QR для содержимого.
func (r *RemoteRenderer) URL(content string) string {
	dim := strconv.Itoa(r.Size)
	q := url.Values{}
	q.Set("data", content)
	q.Set("size", dim+"x"+dim)
	q.Set("bgcolor", "ffffff")
	q.Set("format", "png")
	q.Set("ecc", "M")
	return r.Endpoint + "?" + q.Encode()
}

func (r *RemoteRenderer) Render(ctx context.Context, content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr: empty content")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(content), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("qr service status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read qr image: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("qr service returned empty image")
	}
	return data, nil
}

// LocalRenderer кодирует QR в процессе, без сети.
type LocalRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewLocalRenderer(size int) *LocalRenderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &LocalRenderer{Size: size, Level: qrcode.Medium}
}

func (r *LocalRenderer) Render(_ context.Context, content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr: empty content")
	}
	png, err := qrcode.Encode(content, r.Level, r.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// New выбирает рендерер по имени: "local" или "remote".
func New(kind, endpoint string, size int) Renderer {
	if kind == "local" {
		return NewLocalRenderer(size)
	}
	return NewRemoteRenderer(endpoint, size)
}
