package model

// Count количество кликов по одному ключу (город, страна, день).
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats агрегированная статистика кликов по ссылке.
type Stats struct {
	TotalClicks     int            `json:"total_clicks"`
	Today           int            `json:"today"`
	ThisWeek        int            `json:"this_week"`
	Locations       []Count        `json:"locations"`
	TopLocation     string         `json:"top_location"`
	UniqueLocations int            `json:"unique_locations"`
	Countries       map[string]int `json:"countries"`
	Devices         map[string]int `json:"devices"`
	Daily           []Count        `json:"daily"`
}
