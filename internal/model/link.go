package model

import "time"

// Link сокращённая ссылка пользователя.
type Link struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_url"`
	CustomURL   string    `json:"custom_url,omitempty"`
	Title       string    `json:"title,omitempty"`
	QR          string    `json:"qr,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Code возвращает код, по которому ссылка открывается: алиас, если задан, иначе short code.
func (l *Link) Code() string {
	if l.CustomURL != "" {
		return l.CustomURL
	}
	return l.ShortCode
}

// Codes все коды ссылки, по которым её можно найти.
func (l *Link) Codes() []string {
	if l.CustomURL != "" && l.CustomURL != l.ShortCode {
		return []string{l.ShortCode, l.CustomURL}
	}
	return []string{l.ShortCode}
}
