// Package session хранит текущее состояние сессий пользователей и рассылает
// события их изменения подписчикам.
package session

import (
	"sync"

	"github.com/Totarae/shorttty/internal/model"
)

// EventType тип изменения сессии.
type EventType string

const (
	SignedIn       EventType = "SIGNED_IN"
	SignedOut      EventType = "SIGNED_OUT"
	TokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event изменение сессии пользователя.
type Event struct {
	Type EventType
	User model.User
}

// Listener получает события в порядке публикации.
type Listener func(Event)

type subscriber struct {
	id int
	fn Listener
}

// Provider единое наблюдаемое состояние сессий.
// Слушатели вызываются синхронно, в порядке регистрации.
type Provider struct {
	mutex     sync.RWMutex
	users     map[string]model.User
	listeners []subscriber
	nextID    int
	notify    sync.Mutex
}

func NewProvider() *Provider {
	return &Provider{users: make(map[string]model.User)}
}

// Subscribe регистрирует слушателя и возвращает функцию отписки.
func (p *Provider) Subscribe(fn Listener) func() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mutex.Lock()
			defer p.mutex.Unlock()
			for i, s := range p.listeners {
				if s.id == id {
					p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish обновляет зеркало пользователя и уведомляет слушателей.
func (p *Provider) Publish(ev Event) {
	p.notify.Lock()
	defer p.notify.Unlock()

	p.mutex.Lock()
	switch ev.Type {
	case SignedOut:
		delete(p.users, ev.User.ID)
	default:
		if ev.User.ID != "" {
			p.users[ev.User.ID] = ev.User
		}
	}
	listeners := make([]subscriber, len(p.listeners))
	copy(listeners, p.listeners)
	p.mutex.Unlock()

	for _, s := range listeners {
		s.fn(ev)
	}
}

// User возвращает последний известный профиль пользователя.
func (p *Provider) User(id string) (model.User, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	u, ok := p.users[id]
	return u, ok
}
