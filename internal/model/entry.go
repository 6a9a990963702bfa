package model

// Типы записей журнала файлового хранилища.
const (
	EntryLink   = "link"
	EntryClick  = "click"
	EntryDelete = "delete"
)

// Entry представляет одну строку журнала в файле хранилища.
type Entry struct {
	Kind   string `json:"kind"`
	Link   *Link  `json:"link,omitempty"`
	Click  *Click `json:"click,omitempty"`
	LinkID string `json:"link_id,omitempty"`
}
