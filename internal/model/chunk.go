package model

// ChapterChunk is one embedded slice of a chapter, stored in Postgres with a
// pgvector column. Plagiarism checks search these rows scoped to a book.
type ChapterChunk struct {
	ID        string    `json:"id" db:"id"`
	ChapterID string    `json:"chapter_id" db:"chapter_id"`
	BookID    string    `json:"book_id" db:"book_id"`
	Position  int       `json:"position" db:"position"`
	Content   string    `json:"content" db:"content"`
	Embedding []float32 `json:"-" db:"-"`
	Ctime     int64     `json:"ctime" db:"ctime"`
}

// ChunkMatch is a nearest-neighbour hit against another chapter's chunks.
type ChunkMatch struct {
	ChapterID    string  `db:"chapter_id"`
	ChapterTitle string  `db:"chapter_title"`
	BookTitle    string  `db:"book_title"`
	Content      string  `db:"content"`
	Similarity   float64 `db:"similarity"`
}
