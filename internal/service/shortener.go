package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Totarae/shorttty/internal/analytics"
	"github.com/Totarae/shorttty/internal/cache"
	"github.com/Totarae/shorttty/internal/geo"
	"github.com/Totarae/shorttty/internal/model"
	"github.com/Totarae/shorttty/internal/objectstore"
	"github.com/Totarae/shorttty/internal/qr"
	"github.com/Totarae/shorttty/internal/session"
	"github.com/Totarae/shorttty/internal/util"
	"github.com/Totarae/shorttty/internal/validate"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/repository.go -package=mocks github.com/Totarae/shorttty/internal/service Repository

// Repository хранилище ссылок и кликов.
type Repository interface {
	CreateLink(ctx context.Context, link *model.Link) error
	GetLink(ctx context.Context, id, userID string) (*model.Link, error)
	GetLinkByCode(ctx context.Context, code string) (*model.Link, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListLinks(ctx context.Context, userID string) ([]*model.Link, error)
	DeleteLink(ctx context.Context, id, userID string) error
	InsertClick(ctx context.Context, click *model.Click) error
	ListClicks(ctx context.Context, linkID string) ([]*model.Click, error)
	ListClicksForLinks(ctx context.Context, linkIDs []string) ([]*model.Click, error)
	Ping(ctx context.Context) error
}

// MaxCodeAttempts сколько раз генерируется short code при коллизиях.
const MaxCodeAttempts = 5

var (
	// ErrCodeExhausted не удалось подобрать свободный short code.
	ErrCodeExhausted = errors.New("could not allocate short code")
	// ErrQR не удалось построить или сохранить картинку QR.
	ErrQR = errors.New("failed to generate QR Code")
)

// Options внешние зависимости сервиса; пустые поля заменяются заглушками.
type Options struct {
	QR          qr.Renderer
	Objects     objectstore.Store
	Geo         geo.Locator
	Cache       cache.Cache
	CacheTTL    time.Duration
	DedupWindow time.Duration
}

type ShortenerService struct {
	Repo        Repository
	QR          qr.Renderer
	Objects     objectstore.Store
	Geo         geo.Locator
	Cache       cache.Cache
	Logger      *zap.Logger
	BaseURL     string
	CacheTTL    time.Duration
	DedupWindow time.Duration

	now      func() time.Time
	nextCode func() (string, error)
}

func NewShortenerService(repo Repository, opts Options, logger *zap.Logger, baseURL string) *ShortenerService {
	s := &ShortenerService{
		Repo:        repo,
		QR:          opts.QR,
		Objects:     opts.Objects,
		Geo:         opts.Geo,
		Cache:       opts.Cache,
		Logger:      logger,
		BaseURL:     util.TrimTrailingSlash(baseURL),
		CacheTTL:    opts.CacheTTL,
		DedupWindow: opts.DedupWindow,
		now:         time.Now,
		nextCode:    util.GenerateShortCode,
	}
	if s.QR == nil {
		s.QR = qr.NewLocalRenderer(qr.DefaultSize)
	}
	if s.Geo == nil {
		s.Geo = geo.Nop{}
	}
	if s.Cache == nil {
		s.Cache = cache.Noop{}
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = time.Hour
	}
	return s
}

// SetCodeGenerator подменяет генератор short code.
func (s *ShortenerService) SetCodeGenerator(fn func() (string, error)) {
	s.nextCode = fn
}

// SetClock подменяет источник текущего времени.
func (s *ShortenerService) SetClock(fn func() time.Time) {
	s.now = fn
}

// ShortLink публичный короткий адрес ссылки.
func (s *ShortenerService) ShortLink(link *model.Link) string {
	return s.BaseURL + "/" + link.Code()
}

func (s *ShortenerService) response(link *model.Link) model.LinkResponse {
	return model.LinkResponse{Link: link, ShortLink: s.ShortLink(link)}
}

// CreateLink проверяет форму, подбирает код, строит QR и сохраняет ссылку.
func (s *ShortenerService) CreateLink(ctx context.Context, userID string, req model.CreateLinkRequest) (*model.LinkResponse, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.LongURL = strings.TrimSpace(req.LongURL)
	req.CustomURL = strings.TrimSpace(req.CustomURL)

	if err := validate.CreateLink(req); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	if req.CustomURL != "" {
		taken, err := s.Repo.CodeExists(ctx, req.CustomURL)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("custom url %q: %w", req.CustomURL, model.ErrConflict)
		}
	}

	code, err := s.allocateCode(ctx, req.CustomURL)
	if err != nil {
		return nil, err
	}

	png, err := s.QR.Render(ctx, req.LongURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQR, err)
	}

	linkID := uuid.NewString()
	qrURL := ""
	objectName := qrObjectName(linkID)
	if s.Objects != nil {
		if qrURL, err = s.Objects.Put(ctx, objectName, "image/png", png); err != nil {
			return nil, fmt.Errorf("%w: upload: %w", ErrQR, err)
		}
	}

	link := &model.Link{
		ID:          linkID,
		UserID:      userID,
		OriginalURL: req.LongURL,
		ShortCode:   code,
		CustomURL:   req.CustomURL,
		Title:       req.Title,
		QR:          qrURL,
		CreatedAt:   s.now(),
	}

	if err := s.Repo.CreateLink(ctx, link); err != nil {
		if s.Objects != nil {
			if delErr := s.Objects.Delete(ctx, objectName); delErr != nil {
				s.Logger.Warn("Failed to remove orphan QR image", zap.String("name", objectName), zap.Error(delErr))
			}
		}
		return nil, err
	}
	// код мог остаться в кэше с отметкой об удалении прежней ссылки
	if err := s.Cache.Delete(ctx, linkKeys(link)...); err != nil {
		s.Logger.Warn("Failed to clear cached code", zap.String("link_id", link.ID), zap.Error(err))
	}

	s.Logger.Info("Link created",
		zap.String("user_id", userID),
		zap.String("link_id", link.ID),
		zap.String("code", link.Code()))

	resp := s.response(link)
	return &resp, nil
}

func (s *ShortenerService) allocateCode(ctx context.Context, alias string) (string, error) {
	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		code, err := s.nextCode()
		if err != nil {
			return "", err
		}
		if code == alias {
			continue
		}
		taken, err := s.Repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		s.Logger.Debug("Short code collision", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	return "", ErrCodeExhausted
}

// PreviewQR строит QR для адреса без сохранения.
func (s *ShortenerService) PreviewQR(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !validate.IsURL(rawURL) {
		verr := &model.ValidationError{}
		verr.Add(validate.FieldLongURL, validate.MsgInvalidURL)
		return nil, verr
	}
	png, err := s.QR.Render(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQR, err)
	}
	return png, nil
}

// ListLinks ссылки пользователя, новые первыми, с фильтром по подстроке.
func (s *ShortenerService) ListLinks(ctx context.Context, userID, query string) ([]model.LinkResponse, error) {
	links, err := s.Repo.ListLinks(ctx, userID)
	if err != nil {
		return nil, err
	}
	filtered := FilterLinks(links, query)

	out := make([]model.LinkResponse, 0, len(filtered))
	for _, l := range filtered {
		out = append(out, s.response(l))
	}
	return out, nil
}

// FilterLinks оставляет ссылки, у которых title, адрес или алиас содержат query без учёта регистра.
func FilterLinks(links []*model.Link, query string) []*model.Link {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return links
	}
	out := make([]*model.Link, 0, len(links))
	for _, l := range links {
		if strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.OriginalURL), q) ||
			strings.Contains(strings.ToLower(l.CustomURL), q) {
			out = append(out, l)
		}
	}
	return out
}

// Dashboard сводка пользователя: число ссылок, суммарные клики и отфильтрованный список.
func (s *ShortenerService) Dashboard(ctx context.Context, userID, query string) (*model.DashboardResponse, error) {
	links, err := s.Repo.ListLinks(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}

	total := 0
	if len(ids) > 0 {
		clicks, err := s.Repo.ListClicksForLinks(ctx, ids)
		if err != nil {
			return nil, err
		}
		total = analytics.TotalClicks(clicks, ids)
	}

	filtered := FilterLinks(links, query)
	resp := &model.DashboardResponse{
		LinksCreated: len(links),
		TotalClicks:  total,
		Links:        make([]model.LinkResponse, 0, len(filtered)),
	}
	for _, l := range filtered {
		resp.Links = append(resp.Links, s.response(l))
	}
	return resp, nil
}

// LinkDetails ссылка владельца, её клики и статистика.
func (s *ShortenerService) LinkDetails(ctx context.Context, userID, id string) (*model.LinkDetailsResponse, error) {
	link, err := s.Repo.GetLink(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	clicks, err := s.Repo.ListClicks(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	return &model.LinkDetailsResponse{
		LinkResponse: s.response(link),
		Clicks:       clicks,
		Stats:        analytics.Aggregate(clicks, s.now()),
	}, nil
}

// LinkQR картинка QR ссылки владельца и имя файла для скачивания.
func (s *ShortenerService) LinkQR(ctx context.Context, userID, id string) ([]byte, string, error) {
	link, err := s.Repo.GetLink(ctx, id, userID)
	if err != nil {
		return nil, "", err
	}

	filename := link.Title
	if filename == "" {
		filename = "qr-code"
	}
	filename += ".png"

	if s.Objects != nil {
		if name := objectstore.NameFromURL(link.QR); name != "" {
			data, err := s.Objects.Get(ctx, name)
			if err == nil {
				return data, filename, nil
			}
			if !errors.Is(err, model.ErrNotFound) {
				return nil, "", err
			}
		}
	}

	// картинки нет в хранилище, строим заново
	data, err := s.QR.Render(ctx, link.OriginalURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrQR, err)
	}
	return data, filename, nil
}

// Object публичный объект хранилища по имени.
func (s *ShortenerService) Object(ctx context.Context, name string) ([]byte, error) {
	if s.Objects == nil {
		return nil, model.ErrNotFound
	}
	return s.Objects.Get(ctx, name)
}

// DeleteLink удаляет ссылку владельца вместе с кликами и картинкой QR.
func (s *ShortenerService) DeleteLink(ctx context.Context, userID, id string) error {
	link, err := s.Repo.GetLink(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteLink(ctx, id, userID); err != nil {
		return err
	}

	// отметка вместо удаления ключа: параллельный Resolve не вернёт ссылку в кэш
	for _, key := range linkKeys(link) {
		if err := s.Cache.Set(ctx, key, deletedMarker, s.CacheTTL); err != nil {
			s.Logger.Warn("Failed to mark link deleted in cache", zap.String("key", key), zap.Error(err))
		}
	}

	if s.Objects != nil {
		if name := objectstore.NameFromURL(link.QR); name != "" {
			if err := s.Objects.Delete(ctx, name); err != nil {
				s.Logger.Warn("Failed to delete QR image", zap.String("name", name), zap.Error(err))
			}
		}
	}

	s.Logger.Info("Link deleted", zap.String("user_id", userID), zap.String("link_id", id))
	return nil
}

// Resolve ищет ссылку по short code или алиасу, сначала в кэше.
func (s *ShortenerService) Resolve(ctx context.Context, code string) (*model.Link, error) {
	if code == "" {
		return nil, model.ErrNotFound
	}

	key := linkKey(code)
	if raw, ok, err := s.Cache.Get(ctx, key); err != nil {
		s.Logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if bytes.Equal(raw, deletedMarker) {
			return nil, fmt.Errorf("code %q: %w", code, model.ErrNotFound)
		}
		var link model.Link
		if err := json.Unmarshal(raw, &link); err == nil {
			return &link, nil
		}
	}

	link, err := s.Repo.GetLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(link)
	if err != nil {
		return link, nil
	}
	stored, err := s.Cache.SetIfAbsent(ctx, key, raw, s.CacheTTL)
	if err != nil {
		s.Logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		return link, nil
	}
	if !stored {
		// ключ успели занять: если это отметка удаления, ссылки больше нет
		if cur, ok, err := s.Cache.Get(ctx, key); err == nil && ok && bytes.Equal(cur, deletedMarker) {
			return nil, fmt.Errorf("code %q: %w", code, model.ErrNotFound)
		}
	}
	return link, nil
}

// RecordClick записывает один переход. false означает, что клик отброшен как повтор.
func (s *ShortenerService) RecordClick(ctx context.Context, link *model.Link, ip, userAgent string) (bool, error) {
	if s.DedupWindow > 0 && ip != "" {
		fresh, err := s.Cache.SetIfAbsent(ctx, clickKey(link.ID, ip), []byte{1}, s.DedupWindow)
		if err != nil {
			s.Logger.Warn("Click dedup check failed", zap.Error(err))
		} else if !fresh {
			return false, nil
		}
	}

	loc, err := s.Geo.Locate(ctx, ip)
	if err != nil {
		s.Logger.Debug("Geolocation failed", zap.String("ip", ip), zap.Error(err))
		loc = geo.Location{}
	}

	click := &model.Click{
		ID:        uuid.NewString(),
		LinkID:    link.ID,
		City:      loc.City,
		Country:   loc.Country,
		Device:    util.DetectDevice(userAgent),
		CreatedAt: s.now(),
	}
	if err := s.Repo.InsertClick(ctx, click); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ShortenerService) Ping(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}

// LogSessionEvents подписывает логирование событий сессий.
func (s *ShortenerService) LogSessionEvents(p *session.Provider) func() {
	return p.Subscribe(func(ev session.Event) {
		s.Logger.Info("Session changed",
			zap.String("event", string(ev.Type)),
			zap.String("user_id", ev.User.ID))
	})
}

// deletedMarker значение ключа link:<code> удалённой ссылки.
var deletedMarker = []byte("deleted")

func linkKey(code string) string {
	return "link:" + code
}

func linkKeys(link *model.Link) []string {
	keys := make([]string, 0, 2)
	for _, code := range link.Codes() {
		keys = append(keys, linkKey(code))
	}
	return keys
}

func qrObjectName(linkID string) string {
	return "qr-" + linkID + ".png"
}

func clickKey(linkID, ip string) string {
	return "click:" + linkID + ":" + ip
}
