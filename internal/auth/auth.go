package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Totarae/shorttty/internal/model"
	"github.com/Totarae/shorttty/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	cookieName      = "auth_token"
	stateCookieName = "oauthstate"
	redirectCookie  = "auth_redirect"
	stateTTL        = 20 * time.Minute

	DefaultTTL         = 24 * time.Hour
	DefaultUserInfoURL = "https://api.github.com/user"
)

// ErrNoSession запрос без действующей сессии.
var ErrNoSession = errors.New("no session")

// Config параметры провайдера идентификации и сессий.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UserInfoURL  string
	FrontendURL  string
	Secret       string
	TTL          time.Duration
	Secure       bool
	// Endpoint переопределяет адреса OAuth-провайдера; пустой означает GitHub.
	Endpoint oauth2.Endpoint
}

// Claims содержимое JWT сессии.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

type Auth struct {
	oauth       *oauth2.Config
	secret      []byte
	ttl         time.Duration
	userInfoURL string
	frontendURL string
	secure      bool
	sessions    *session.Provider
	logger      *zap.Logger
}

func New(cfg Config, sessions *session.Provider, logger *zap.Logger) *Auth {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = github.Endpoint
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = DefaultUserInfoURL
	}
	frontend := cfg.FrontendURL
	if frontend == "" {
		frontend = "/dashboard"
	}
	if sessions == nil {
		sessions = session.NewProvider()
	}

	return &Auth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		secret:      []byte(cfg.Secret),
		ttl:         ttl,
		userInfoURL: userInfo,
		frontendURL: frontend,
		secure:      cfg.Secure,
		sessions:    sessions,
		logger:      logger,
	}
}

// Sessions провайдер событий сессий.
func (a *Auth) Sessions() *session.Provider {
	return a.sessions
}

// IssueToken подписывает токен сессии для пользователя
func (a *Auth) IssueToken(user model.User) (string, time.Time, error) {
	expires := time.Now().Add(a.ttl)
	claims := &Claims{
		Name:   user.Name,
		Email:  user.Email,
		Avatar: user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// ParseToken проверяет подпись и срок действия токена.
func (a *Auth) ParseToken(raw string) (model.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.User{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return model.User{}, ErrNoSession
	}
	return model.User{
		ID:        claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		AvatarURL: claims.Avatar,
	}, nil
}

// CurrentUser достаёт пользователя из куки или заголовка Authorization
func (a *Auth) CurrentUser(r *http.Request) (model.User, error) {
	raw := ""
	if cookie, err := r.Cookie(cookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if raw == "" {
		return model.User{}, ErrNoSession
	}
	return a.ParseToken(raw)
}

// проверить, авторизован ли пользователь
func (a *Auth) ValidateUserID(r *http.Request) (string, bool) {
	user, err := a.CurrentUser(r)
	if err != nil {
		return "", false
	}
	return user.ID, true
}

// Login отправляет пользователя к провайдеру идентификации.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state := a.setStateCookie(w)
	if target := SafeRedirect(r.URL.Query().Get("redirect")); target != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     redirectCookie,
			Value:    url.QueryEscape(target),
			Path:     "/",
			Expires:  time.Now().Add(stateTTL),
			HttpOnly: true,
			Secure:   a.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, a.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback завершает вход: проверяет state, обменивает код и выдаёт сессию.
func (a *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookieName)
	if err != nil || state.Value == "" || r.FormValue("state") != state.Value {
		a.logger.Warn("Invalid oauth state")
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	clearCookie(w, stateCookieName, a.secure)

	token, err := a.oauth.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		a.logger.Error("OAuth code exchange failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "code exchange failed")
		return
	}

	user, err := a.fetchUser(r.Context(), token)
	if err != nil {
		a.logger.Error("Failed to fetch user profile", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed getting user info")
		return
	}

	if err := a.startSession(w, user); err != nil {
		a.logger.Error("Failed to issue session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "request failed")
		return
	}
	a.sessions.Publish(session.Event{Type: session.SignedIn, User: user})

	target := a.frontendURL
	if c, err := r.Cookie(redirectCookie); err == nil {
		if v, err := url.QueryUnescape(c.Value); err == nil && SafeRedirect(v) != "" {
			target = v
		}
		clearCookie(w, redirectCookie, a.secure)
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// Refresh перевыпускает токен текущей сессии.
func (a *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	user, err := a.CurrentUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := a.startSession(w, user); err != nil {
		a.logger.Error("Failed to refresh session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "request failed")
		return
	}
	a.sessions.Publish(session.Event{Type: session.TokenRefreshed, User: user})
	writeJSON(w, http.StatusOK, user)
}

// Logout удаляет куку сессии.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := a.CurrentUser(r)
	clearCookie(w, cookieName, a.secure)
	if err == nil {
		a.sessions.Publish(session.Event{Type: session.SignedOut, User: user})
	}
	if r.Method == http.MethodGet {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me возвращает профиль текущего пользователя.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		var err error
		if user, err = a.CurrentUser(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}
	if mirrored, ok := a.sessions.User(user.ID); ok {
		user = mirrored
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *Auth) startSession(w http.ResponseWriter, user model.User) error {
	token, expires, err := a.IssueToken(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (a *Auth) fetchUser(ctx context.Context, token *oauth2.Token) (model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return model.User{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return model.User{}, fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.User{}, fmt.Errorf("user info status %d", resp.StatusCode)
	}

	var gu githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return model.User{}, fmt.Errorf("decode user info: %w", err)
	}
	if gu.ID == 0 {
		return model.User{}, errors.New("user info without id")
	}

	name := gu.Name
	if name == "" {
		name = gu.Login
	}
	return model.User{
		ID:        strconv.FormatInt(gu.ID, 10),
		Name:      name,
		Email:     gu.Email,
		AvatarURL: gu.AvatarURL,
	}, nil
}

func (a *Auth) setStateCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateTTL),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

// SafeRedirect пропускает только относительные пути этого сайта.
func SafeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return ""
	}
	return target
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
