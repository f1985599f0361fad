package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	runID := uuid.New()

	err := s.Put(runID, PlanSummaryKey(), []byte("a brave mouse sets out"))
	require.NoError(t, err)

	art, err := s.Get(runID, PlanSummaryKey())
	require.NoError(t, err)
	assert.Equal(t, "a brave mouse sets out", string(art.Data))
	assert.Equal(t, "text/plain; charset=utf-8", art.ContentType)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	runID := uuid.New()

	_, err := s.Get(runID, PlanKey())
	require.Error(t, err)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, runID, notFound.RunID)
	assert.Equal(t, PlanKey(), notFound.Key)
}

func TestPutOverwritesIdempotently(t *testing.T) {
	s := newTestStore(t)
	runID := uuid.New()

	require.NoError(t, s.Put(runID, PageTextKey(1), []byte("first draft")))
	require.NoError(t, s.Put(runID, PageTextKey(1), []byte("second draft")))

	art, err := s.Get(runID, PageTextKey(1))
	require.NoError(t, err)
	assert.Equal(t, "second draft", string(art.Data))

	// Overwrite replaces, never duplicates
	keys, err := s.List(runID)
	require.NoError(t, err)
	assert.Equal(t, []Key{PageTextKey(1)}, keys)
}

func TestPutJSONGetJSON(t *testing.T) {
	s := newTestStore(t)
	runID := uuid.New()

	type payload struct {
		Title string `json:"title"`
		Pages int    `json:"pages"`
	}

	require.NoError(t, s.PutJSON(runID, PlanKey(), payload{Title: "The Brave Mouse", Pages: 4}))

	var got payload
	require.NoError(t, s.GetJSON(runID, PlanKey(), &got))
	assert.Equal(t, "The Brave Mouse", got.Title)
	assert.Equal(t, 4, got.Pages)
}

func TestListSortedAndRestartable(t *testing.T) {
	s := newTestStore(t)
	runID := uuid.New()

	require.NoError(t, s.Put(runID, PageImageKey(2), []byte{0x89}))
	require.NoError(t, s.Put(runID, CharacterKey("hero"), []byte("{}")))
	require.NoError(t, s.Put(runID, PageImageKey(1), []byte{0x89}))

	expected := []Key{
		CharacterKey("hero"),
		PageImageKey(1),
		PageImageKey(2),
	}

	keys, err := s.List(runID)
	require.NoError(t, err)
	assert.Equal(t, expected, keys)

	// Restartable: a second walk sees the same sequence
	again, err := s.List(runID)
	require.NoError(t, err)
	assert.Equal(t, expected, again)
}

func TestListUnknownRunIsEmpty(t *testing.T) {
	s := newTestStore(t)

	keys, err := s.List(uuid.New())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRunsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	runA := uuid.New()
	runB := uuid.New()

	require.NoError(t, s.Put(runA, PlanKey(), []byte("{}")))

	keys, err := s.List(runB)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = s.Get(runB, PlanKey())
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestListRunIDs(t *testing.T) {
	s := newTestStore(t)
	runA := uuid.New()
	runB := uuid.New()

	require.NoError(t, s.Put(runA, PlanKey(), []byte("{}")))
	require.NoError(t, s.Put(runB, PlanKey(), []byte("{}")))

	ids, err := s.ListRunIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{runA, runB}, ids)
}

func TestPageImageKeyCover(t *testing.T) {
	assert.Equal(t, Key("pages/images/cover.png"), PageImageKey(0))
	assert.Equal(t, Key("pages/images/page_03.png"), PageImageKey(3))
}
