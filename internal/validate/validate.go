// Package validate проверяет форму создания ссылки.
// Проверка чисто структурная: уникальность алиаса здесь не проверяется.
package validate

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Totarae/shorttty/internal/model"
)

// Поля формы, как их видит клиент.
const (
	FieldTitle     = "title"
	FieldLongURL   = "longUrl"
	FieldCustomURL = "customUrl"
)

// Сообщения об ошибках полей.
const (
	MsgTitle          = "Title is required & must be atleast 3 characters"
	MsgURLRequired    = "URL is required"
	MsgInvalidURL     = "Must be a valid URL"
	MsgCustomURLLen   = "must be less than or equal to 8 characters"
	MsgCustomURLChars = "Custom URL can only contain letters, numbers"
)

const (
	minTitleLen     = 3
	maxCustomURLLen = 8
)

var aliasRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// CreateLink проверяет запрос и возвращает *model.ValidationError со всеми ошибками полей.
func CreateLink(req model.CreateLinkRequest) error {
	verr := &model.ValidationError{}

	if utf8.RuneCountInString(strings.TrimSpace(req.Title)) < minTitleLen {
		verr.Add(FieldTitle, MsgTitle)
	}

	if strings.TrimSpace(req.LongURL) == "" {
		verr.Add(FieldLongURL, MsgURLRequired)
	} else if !IsURL(req.LongURL) {
		verr.Add(FieldLongURL, MsgInvalidURL)
	}

	if req.CustomURL != "" {
		if utf8.RuneCountInString(req.CustomURL) > maxCustomURLLen {
			verr.Add(FieldCustomURL, MsgCustomURLLen)
		}
		if !aliasRe.MatchString(req.CustomURL) {
			verr.Add(FieldCustomURL, MsgCustomURLChars)
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// IsURL true для абсолютного URL со схемой и хостом.
func IsURL(raw string) bool {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}
