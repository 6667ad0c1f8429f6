package api

type SavePostRequest struct {
	Slug        string   `json:"slug"`
	Content     string   `json:"content"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PubDate     string   `json:"pubDate"`
	Tags        []string `json:"tags"`
	HeroImage   string   `json:"heroImage"`
}

type SavePostResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

type ImportRequest struct {
	URL string `json:"url"`
}

type ImportResponse struct {
	Message     string   `json:"message"`
	Slug        string   `json:"slug"`
	Path        string   `json:"path"`
	Images      int      `json:"images"`
	Localized   int      `json:"localized"`
	StaleAssets []string `json:"staleAssets,omitempty"`
}

type SearchEntry struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PubDate     string   `json:"pubDate"`
	Tags        []string `json:"tags"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
