package util

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/Totarae/shorttty/internal/model"
)

// ShortCodeLength длина генерируемого short code.
const ShortCodeLength = 6

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateShortCode возвращает случайный код из ShortCodeLength символов base36.
func GenerateShortCode() (string, error) {
	b := make([]byte, ShortCodeLength)
	max := big.NewInt(int64(len(base36)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = base36[n.Int64()]
	}
	return string(b), nil
}

// DetectDevice грубо определяет класс устройства по User-Agent.
func DetectDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")):
		return model.DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipod") || strings.Contains(ua, "android"):
		return model.DeviceMobile
	default:
		return model.DeviceDesktop
	}
}

// TrimTrailingSlash убирает завершающий слэш (для BASE_URL и эндпоинтов).
func TrimTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
