package llm

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is a test double for Client. Each call delegates to the
// corresponding func field when set and fails otherwise, so tests only stub
// the calls they expect.
type FakeClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier ModelTier) (string, error)
	DescribeImagesFunc  func(ctx context.Context, prompt string, images []ImageInput) (string, error)
	GenerateImageFunc   func(ctx context.Context, prompt string) ([]byte, string, error)

	mu    sync.Mutex
	Calls []string
}

func (f *FakeClient) record(name string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, name)
	f.mu.Unlock()
}

// CallNames returns a copy of the recorded call names.
func (f *FakeClient) CallNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

var _ Client = (*FakeClient)(nil)

// GenerateContent implements Client.
func (f *FakeClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	f.record("GenerateContent")
	if f.GenerateContentFunc == nil {
		return "", fmt.Errorf("unexpected GenerateContent call")
	}
	return f.GenerateContentFunc(ctx, prompt, tier)
}

// GenerateJSON implements Client.
func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	f.record("GenerateJSON")
	if f.GenerateJSONFunc == nil {
		return "", fmt.Errorf("unexpected GenerateJSON call")
	}
	return f.GenerateJSONFunc(ctx, prompt, tier)
}

// DescribeImages implements Client.
func (f *FakeClient) DescribeImages(ctx context.Context, prompt string, images []ImageInput) (string, error) {
	f.record("DescribeImages")
	if f.DescribeImagesFunc == nil {
		return "", fmt.Errorf("unexpected DescribeImages call")
	}
	return f.DescribeImagesFunc(ctx, prompt, images)
}

// GenerateImage implements Client.
func (f *FakeClient) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	f.record("GenerateImage")
	if f.GenerateImageFunc == nil {
		return nil, "", fmt.Errorf("unexpected GenerateImage call")
	}
	return f.GenerateImageFunc(ctx, prompt)
}

// GetModel implements Client.
func (f *FakeClient) GetModel(tier ModelTier) string {
	return "fake-" + string(tier)
}

// Close implements Client.
func (f *FakeClient) Close() error { return nil }
