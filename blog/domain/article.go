package domain

// ArticleDraft is the readable content isolated from a fetched page. It only
// lives for the duration of one import.
type ArticleDraft struct {
	Title    string
	BodyHTML string
	Excerpt  string
}
