package types

// PageOutline describes the planned content of a single page.
type PageOutline struct {
	PageNumber        int      `json:"page_number"`
	SceneDescription  string   `json:"scene_description"`
	CharactersPresent []string `json:"characters_present,omitempty"`
	MoodTone          string   `json:"mood_tone,omitempty"`
	VisualElements    []string `json:"visual_elements,omitempty"`
}

// BookPlan is the structured plan produced by the planning stage: the story arc,
// the cover concept, and one outline per page.
type BookPlan struct {
	Title        string        `json:"title"`
	StoryIdea    string        `json:"story_idea"`
	AgeGroup     string        `json:"age_group"`
	Language     string        `json:"language"`
	Themes       []string      `json:"themes,omitempty"`
	StoryArc     string        `json:"story_arc"`
	CoverConcept string        `json:"cover_concept"`
	Pages        []PageOutline `json:"pages"`
}

// PageCount returns the number of planned pages (excluding the cover).
func (p *BookPlan) PageCount() int {
	return len(p.Pages)
}

// Page returns the outline for a 1-based page number, or nil if out of range.
func (p *BookPlan) Page(n int) *PageOutline {
	for i := range p.Pages {
		if p.Pages[i].PageNumber == n {
			return &p.Pages[i]
		}
	}
	return nil
}

// TrendReport is the optional output of the trend research stage.
type TrendReport struct {
	Topic   string   `json:"topic"`
	Summary string   `json:"summary"`
	Themes  []string `json:"themes,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// StyleProfile is the optional output of the style analysis stage.
type StyleProfile struct {
	Voice          string   `json:"voice"`
	SentenceLength string   `json:"sentence_length"`
	Devices        []string `json:"devices,omitempty"`
	Summary        string   `json:"summary"`
}
