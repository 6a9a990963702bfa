package analytics_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Totarae/shorttty/internal/analytics"
	"github.com/Totarae/shorttty/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func click(city, country, device string, at time.Time) *model.Click {
	return &model.Click{City: city, Country: country, Device: device, CreatedAt: at, LinkID: "l1"}
}

func TestAggregate_Empty(t *testing.T) {
	stats := analytics.Aggregate(nil, time.Now())

	assert.Equal(t, 0, stats.TotalClicks)
	assert.Empty(t, stats.Locations)
	assert.Equal(t, "N/A", stats.TopLocation)
	assert.Len(t, stats.Daily, 7)
}

func TestAggregate(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	clicks := []*model.Click{
		click("Berlin", "Germany", "mobile", now.Add(-time.Hour)),
		click("Berlin", "Germany", "desktop", now.Add(-2*time.Hour)),
		click("Paris", "France", "tablet", now.Add(-26*time.Hour)),
		click("", "France", "", now.Add(-3*24*time.Hour)),
		click("Oslo", "", "mobile", now.Add(-10*24*time.Hour)),
	}

	stats := analytics.Aggregate(clicks, now)

	assert.Equal(t, 5, stats.TotalClicks)
	assert.Equal(t, 2, stats.Today)
	assert.Equal(t, 4, stats.ThisWeek)
	assert.Equal(t, "Berlin", stats.TopLocation)
	assert.Equal(t, 2, stats.UniqueLocations)
	assert.Equal(t, []model.Count{{Name: "Berlin", Count: 2}, {Name: "Paris", Count: 1}}, stats.Locations)
	assert.Equal(t, map[string]int{"Germany": 2, "France": 2}, stats.Countries)
	assert.Equal(t, map[string]int{"mobile": 2, "desktop": 2, "tablet": 1}, stats.Devices)

	require.Len(t, stats.Daily, 7)
	assert.Equal(t, "2024-05-04", stats.Daily[0].Name)
	assert.Equal(t, model.Count{Name: "2024-05-07", Count: 1}, stats.Daily[3])
	assert.Equal(t, model.Count{Name: "2024-05-09", Count: 1}, stats.Daily[5])
	assert.Equal(t, model.Count{Name: "2024-05-10", Count: 2}, stats.Daily[6])
}

func TestAggregate_TopTenLocations(t *testing.T) {
	now := time.Now()
	var clicks []*model.Click
	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			clicks = append(clicks, click(fmt.Sprintf("city-%02d", i), "Country", "desktop", now))
		}
	}

	stats := analytics.Aggregate(clicks, now)

	require.Len(t, stats.Locations, 10)
	assert.Equal(t, "city-11", stats.Locations[0].Name)
	assert.Equal(t, 12, stats.Locations[0].Count)
	assert.Equal(t, "city-02", stats.Locations[9].Name)
	assert.Equal(t, 12, stats.UniqueLocations)
}

func TestTotalClicks(t *testing.T) {
	clicks := []*model.Click{{LinkID: "a"}, {LinkID: "a"}, {LinkID: "b"}, {LinkID: "c"}}
	assert.Equal(t, 3, analytics.TotalClicks(clicks, []string{"a", "b"}))
}
