// Package geo определяет город и страну по IP-адресу.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://ipapi.co"
	DefaultTimeout  = 2 * time.Second
)

// Location результат геолокации; пустые поля означают «неизвестно».
type Location struct {
	City    string `json:"city"`
	Country string `json:"country_name"`
}

// Locator определяет местоположение клиента.
type Locator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// Client ходит в ipapi-совместимый сервис: GET <endpoint>/<ip>/json/.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		timeout:  timeout,
		http:     &http.Client{},
	}
}

func (c *Client) Locate(ctx context.Context, ip string) (Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || !IsPublic(parsed) {
		return Location{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.endpoint, parsed.String()), nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo lookup status %d", resp.StatusCode)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return Location{}, fmt.Errorf("decode geo response: %w", err)
	}
	return loc, nil
}

// IsPublic false для loopback, приватных и link-local адресов.
func IsPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}

// ClientIP адрес клиента без порта.
func ClientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// Nop никогда не определяет местоположение.
type Nop struct{}

func (Nop) Locate(context.Context, string) (Location, error) {
	return Location{}, nil
}
