package model

// CreateLinkRequest тело запроса на создание короткой ссылки.
type CreateLinkRequest struct {
	Title     string `json:"title"`
	LongURL   string `json:"longUrl"`
	CustomURL string `json:"customUrl,omitempty"`
}

// LinkResponse ссылка вместе с готовым коротким адресом для копирования.
type LinkResponse struct {
	*Link
	ShortLink string `json:"short_link"`
}

// DashboardResponse сводка для страницы /dashboard.
type DashboardResponse struct {
	LinksCreated int            `json:"links_created"`
	TotalClicks  int            `json:"total_clicks"`
	Links        []LinkResponse `json:"links"`
	// CreateNew адрес для предзаполнения формы создания.
	CreateNew string `json:"create_new,omitempty"`
}

// LinkDetailsResponse ссылка, её клики и агрегированная статистика.
type LinkDetailsResponse struct {
	LinkResponse
	Clicks []*Click `json:"clicks"`
	Stats  *Stats   `json:"stats"`
}
