package research

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// SourceFinder discovers trend source pages via Google Programmable Search.
// It is only constructed when search credentials are configured; callers can
// always supply explicit source URLs instead.
type SourceFinder struct {
	svc *customsearch.Service
	cx  string
}

// NewSourceFinder creates a SourceFinder backed by the customsearch API.
func NewSourceFinder(ctx context.Context, apiKey string, cx string) (*SourceFinder, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &ResearchError{Message: "failed to create customsearch service", Cause: err}
	}
	return &SourceFinder{
		svc: svc,
		cx:  cx,
	}, nil
}

// DiscoverSources finds pages likely to describe current trends for a topic
// in children's literature. Failed queries are skipped; an empty result is
// not an error here, the caller decides whether to proceed without sources.
func (f *SourceFinder) DiscoverSources(ctx context.Context, topic string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	queries := []string{
		fmt.Sprintf("%s children's picture books trends", topic),
		fmt.Sprintf("%s popular themes children's literature", topic),
		fmt.Sprintf("best selling children's books %s", topic),
	}

	var urls []string
	seen := make(map[string]bool)
	for _, q := range queries {
		resp, err := f.svc.Cse.List().Context(ctx).Cx(f.cx).Q(q).Num(3).Do()
		if err != nil {
			continue
		}
		for _, item := range resp.Items {
			if seen[item.Link] {
				continue
			}
			seen[item.Link] = true
			urls = append(urls, item.Link)
			if len(urls) >= limit {
				return urls, nil
			}
		}
	}
	return urls, nil
}
