package result

// Result is one formatted search hit as returned to clients.
type Result struct {
	PostID  int64   `json:"post_id"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// LinkRef is a page the language model may cite.
type LinkRef struct {
	Title string
	URL   string
}

// Source is a page a chat answer was grounded on.
type Source struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}
