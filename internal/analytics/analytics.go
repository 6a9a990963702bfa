// Package analytics считает статистику переходов по списку кликов.
package analytics

import (
	"sort"
	"time"

	"github.com/Totarae/shorttty/internal/model"
)

const (
	TopLocations    = 10
	UnknownLocation = "Unknown"
	NoLocation      = "N/A"
	dailyDays       = 7
	dayLayout       = "2006-01-02"
)

// Aggregate строит статистику по всем кликам ссылки.
// Границы «сегодня» и дней считаются в часовом поясе now.
func Aggregate(clicks []*model.Click, now time.Time) *model.Stats {
	stats := &model.Stats{
		TotalClicks: len(clicks),
		Countries:   make(map[string]int),
		Devices:     make(map[string]int),
		Locations:   []model.Count{},
	}

	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	firstDay := midnight.AddDate(0, 0, -(dailyDays - 1))

	daily := make(map[string]int, dailyDays)
	cities := make(map[string]int)

	for _, c := range clicks {
		created := c.CreatedAt.In(loc)

		if !created.Before(midnight) {
			stats.Today++
		}
		if created.After(weekAgo) {
			stats.ThisWeek++
		}
		if !created.Before(firstDay) {
			daily[created.Format(dayLayout)]++
		}

		device := c.Device
		if device == "" {
			device = model.DeviceDesktop
		}
		stats.Devices[device]++

		if c.Country != "" {
			stats.Countries[c.Country]++
		}

		if c.City == "" || c.Country == "" {
			continue
		}
		cities[cityName(c.City)]++
	}

	stats.UniqueLocations = len(cities)
	stats.Locations = topCounts(cities, TopLocations)
	stats.TopLocation = NoLocation
	if len(stats.Locations) > 0 {
		stats.TopLocation = stats.Locations[0].Name
	}

	stats.Daily = make([]model.Count, 0, dailyDays)
	for i := 0; i < dailyDays; i++ {
		day := firstDay.AddDate(0, 0, i).Format(dayLayout)
		stats.Daily = append(stats.Daily, model.Count{Name: day, Count: daily[day]})
	}

	return stats
}

func cityName(city string) string {
	if city == "" {
		return UnknownLocation
	}
	return city
}

// topCounts сортирует по убыванию количества, при равенстве по имени.
func topCounts(counts map[string]int, limit int) []model.Count {
	out := make([]model.Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, model.Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TotalClicks количество кликов по набору ссылок.
func TotalClicks(clicks []*model.Click, linkIDs []string) int {
	ids := make(map[string]struct{}, len(linkIDs))
	for _, id := range linkIDs {
		ids[id] = struct{}{}
	}
	total := 0
	for _, c := range clicks {
		if _, ok := ids[c.LinkID]; ok {
			total++
		}
	}
	return total
}
