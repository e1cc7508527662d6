package model

type SubmitterClass string

const (
	SubmitterOwner  SubmitterClass = "owner"
	SubmitterSeller SubmitterClass = "seller"
)

func (s SubmitterClass) Valid() bool {
	return s == SubmitterOwner || s == SubmitterSeller
}

// BypassesModeration reports whether the submitter class skips the content
// gate chain entirely.
func (s SubmitterClass) BypassesModeration() bool {
	return s == SubmitterSeller
}

type Book struct {
	ID             string         `json:"id" db:"id"`
	OwnerID        string         `json:"owner_id" db:"owner_id"`
	Title          string         `json:"title" db:"title"`
	SubmitterClass SubmitterClass `json:"submitter_class" db:"submitter_class"`
	State          int            `json:"state" db:"state"`
	Ctime          int64          `json:"ctime" db:"ctime"`
	Mtime          int64          `json:"mtime" db:"mtime"`
}
