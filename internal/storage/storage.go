// Package storage хранит ссылки и клики в памяти процесса,
// опционально дублируя каждую запись в JSON-lines файл.
package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/Totarae/shorttty/internal/model"
	"go.uber.org/zap"
)

// LinkStore provides a thread-safe link storage
type LinkStore struct {
	mutex  sync.RWMutex
	links  map[string]*model.Link
	codes  map[string]string // код или алиас -> id ссылки
	clicks map[string][]*model.Click
	file   string
	logger *zap.Logger
}

// NewLinkStore initializes a new LinkStore. Пустой file означает режим in-memory.
func NewLinkStore(file string, logger *zap.Logger) (*LinkStore, error) {
	store := &LinkStore{
		links:  make(map[string]*model.Link),
		codes:  make(map[string]string),
		clicks: make(map[string][]*model.Click),
		file:   file,
		logger: logger,
	}

	if file != "" {
		if err := store.LoadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return store, nil
}

// CreateLink сохраняет ссылку, если её коды свободны.
func (s *LinkStore) CreateLink(_ context.Context, link *model.Link) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, code := range link.Codes() {
		if _, ok := s.codes[code]; ok {
			return fmt.Errorf("code %q is taken: %w", code, model.ErrConflict)
		}
	}

	if err := s.appendToFile(model.Entry{Kind: model.EntryLink, Link: link}); err != nil {
		return err
	}
	s.putLink(link)
	return nil
}

// GetLink возвращает ссылку владельца по id.
func (s *LinkStore) GetLink(_ context.Context, id, userID string) (*model.Link, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	link, ok := s.links[id]
	if !ok || link.UserID != userID {
		return nil, fmt.Errorf("link %q: %w", id, model.ErrNotFound)
	}
	cp := *link
	return &cp, nil
}

// GetLinkByCode ищет ссылку по short code или алиасу.
func (s *LinkStore) GetLinkByCode(_ context.Context, code string) (*model.Link, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("code %q: %w", code, model.ErrNotFound)
	}
	cp := *s.links[id]
	return &cp, nil
}

// CodeExists проверяет, занят ли код.
func (s *LinkStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	_, ok := s.codes[code]
	return ok, nil
}

// ListLinks возвращает все ссылки пользователя, новые первыми.
func (s *LinkStore) ListLinks(_ context.Context, userID string) ([]*model.Link, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	results := make([]*model.Link, 0)
	for _, link := range s.links {
		if link.UserID == userID {
			cp := *link
			results = append(results, &cp)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// DeleteLink удаляет ссылку владельца и её клики.
func (s *LinkStore) DeleteLink(_ context.Context, id, userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	link, ok := s.links[id]
	if !ok || link.UserID != userID {
		return fmt.Errorf("link %q: %w", id, model.ErrNotFound)
	}

	if err := s.appendToFile(model.Entry{Kind: model.EntryDelete, LinkID: id}); err != nil {
		return err
	}
	s.removeLink(id)
	return nil
}

// InsertClick сохраняет переход по ссылке.
func (s *LinkStore) InsertClick(_ context.Context, click *model.Click) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.appendToFile(model.Entry{Kind: model.EntryClick, Click: click}); err != nil {
		return err
	}
	s.clicks[click.LinkID] = append(s.clicks[click.LinkID], click)
	return nil
}

// ListClicks возвращает клики ссылки, новые первыми.
func (s *LinkStore) ListClicks(ctx context.Context, linkID string) ([]*model.Click, error) {
	return s.ListClicksForLinks(ctx, []string{linkID})
}

// ListClicksForLinks возвращает клики набора ссылок, новые первыми.
func (s *LinkStore) ListClicksForLinks(_ context.Context, linkIDs []string) ([]*model.Click, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	results := make([]*model.Click, 0)
	for _, id := range linkIDs {
		for _, c := range s.clicks[id] {
			cp := *c
			results = append(results, &cp)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// Ping всегда успешен: хранилище локальное.
func (s *LinkStore) Ping(context.Context) error {
	return nil
}

// LoadFromFile загружает данные из файла при старте сервера
func (s *LinkStore) LoadFromFile() error {
	file, err := os.Open(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Файл ещё не создан, это не ошибка
		}
		return err
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var entry model.Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// битая строка (например, оборванная запись) не должна ронять старт
			s.logger.Warn("skip broken storage record", zap.Int("line", line), zap.Error(err))
			continue
		}
		s.apply(entry)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.logger.Info("storage loaded from file",
		zap.String("file", s.file), zap.Int("links", len(s.links)))
	return nil
}

func (s *LinkStore) apply(entry model.Entry) {
	switch entry.Kind {
	case model.EntryLink:
		if entry.Link != nil {
			s.putLink(entry.Link)
		}
	case model.EntryClick:
		if entry.Click != nil {
			s.clicks[entry.Click.LinkID] = append(s.clicks[entry.Click.LinkID], entry.Click)
		}
	case model.EntryDelete:
		s.removeLink(entry.LinkID)
	}
}

func (s *LinkStore) putLink(link *model.Link) {
	cp := *link
	s.links[cp.ID] = &cp
	for _, code := range cp.Codes() {
		s.codes[code] = cp.ID
	}
}

func (s *LinkStore) removeLink(id string) {
	link, ok := s.links[id]
	if !ok {
		return
	}
	for _, code := range link.Codes() {
		delete(s.codes, code)
	}
	delete(s.links, id)
	delete(s.clicks, id)
}

// appendToFile добавляет новую запись в файл. Вызывается под s.mutex.
func (s *LinkStore) appendToFile(entry model.Entry) error {
	if s.file == "" {
		return nil
	}

	file, err := os.OpenFile(s.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open storage file: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		_ = file.Close()
		return err
	}

	_, err = file.Write(append(data, '\n')) // Записываем с новой строки
	return errors.Join(err, file.Close())
}
