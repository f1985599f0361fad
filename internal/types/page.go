package types

// CoverPage is the pseudo page number used for the cover image.
const CoverPage = 0

// PageText is the generated text for one page.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Title      string `json:"title,omitempty"`
	Markdown   string `json:"markdown"`
}

// GeneratedImage records the outcome of one image generation unit.
// A failed unit carries an ErrorMessage and an empty Path.
type GeneratedImage struct {
	PageNumber   int    `json:"page_number"`
	PromptUsed   string `json:"prompt_used"`
	Path         string `json:"path,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// IsCover reports whether the image is the book cover.
func (g *GeneratedImage) IsCover() bool {
	return g.PageNumber == CoverPage
}

// Page binds the finished text and image for one page during assembly.
type Page struct {
	Number    int
	Text      *PageText
	ImagePath string
}
