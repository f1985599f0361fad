package pipeline

import (
	"context"
	"time"

	"github.com/jonathan/bookforge/internal/llm"
)

// timeoutClient wraps a generation client so every external call carries
// the configured deadline. Expiry surfaces as an ordinary call error and
// gets the same required/optional handling as any other failure.
type timeoutClient struct {
	inner   llm.Client
	timeout time.Duration
}

var _ llm.Client = (*timeoutClient)(nil)

// NewTimeoutClient applies a per-call timeout to every client method.
// A non-positive timeout returns the client unchanged.
func NewTimeoutClient(inner llm.Client, timeout time.Duration) llm.Client {
	if timeout <= 0 {
		return inner
	}
	return &timeoutClient{inner: inner, timeout: timeout}
}

func (c *timeoutClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.GenerateContent(ctx, prompt, tier)
}

func (c *timeoutClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.GenerateJSON(ctx, prompt, tier)
}

func (c *timeoutClient) DescribeImages(ctx context.Context, prompt string, images []llm.ImageInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.DescribeImages(ctx, prompt, images)
}

func (c *timeoutClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.GenerateImage(ctx, prompt)
}

func (c *timeoutClient) GetModel(tier llm.ModelTier) string {
	return c.inner.GetModel(tier)
}

func (c *timeoutClient) Close() error {
	return c.inner.Close()
}
