package model

const (
	EmbeddingStatePending = 0
	EmbeddingStateSynced  = 1
)

type Chapter struct {
	ID             string `json:"id" db:"id"`
	BookID         string `json:"book_id" db:"book_id"`
	Title          string `json:"title" db:"title"`
	Content        string `json:"content" db:"content"`
	Price          int64  `json:"price" db:"price"`
	IsFree         bool   `json:"is_free" db:"is_free"`
	SourceURL      string `json:"source_url" db:"source_url"`
	State          int    `json:"state" db:"state"`
	EmbeddingState int    `json:"embedding_state" db:"embedding_state"`
	Ctime          int64  `json:"ctime" db:"ctime"`
	Mtime          int64  `json:"mtime" db:"mtime"`
}
