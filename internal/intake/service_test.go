package intake

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/constants"
	"github.com/licitalab/editalscan/internal/async"
	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/repository"
)

type recordingQueue struct {
	jobs []async.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *recordingQueue) Shutdown(context.Context) {}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSubmitNewDocument(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	queue := &recordingQueue{}
	svc := NewService(index, queue, nil)

	path := writeTemp(t, "edital.pdf", "%PDF-1.7 corpo do edital")
	meta := entity.RunMetadata{UASG: "986531", NumeroPregao: "001/2025"}

	res, err := svc.Submit(context.Background(), path, meta)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, constants.TaskQueued, res.Status)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, res.TaskID, queue.jobs[0].TaskID)
	assert.Equal(t, meta, queue.jobs[0].Metadata)
	assert.Equal(t, 0, queue.jobs[0].Attempt)
}

func TestSubmitDuplicateShortCircuits(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	queue := &recordingQueue{}
	svc := NewService(index, queue, nil)

	path := writeTemp(t, "edital.pdf", "%PDF-1.7 corpo do edital")

	first, err := svc.Submit(context.Background(), path, entity.RunMetadata{})
	require.NoError(t, err)

	second, err := svc.Submit(context.Background(), path, entity.RunMetadata{})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.TaskID, second.TaskID)
	assert.Len(t, queue.jobs, 1, "duplicate submissions never enqueue")
}

func TestSubmitSameContentDifferentName(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	queue := &recordingQueue{}
	svc := NewService(index, queue, nil)

	a := writeTemp(t, "a.pdf", "conteúdo idêntico")
	b := writeTemp(t, "b.pdf", "conteúdo idêntico")

	first, err := svc.Submit(context.Background(), a, entity.RunMetadata{})
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), b, entity.RunMetadata{})
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.TaskID, second.TaskID)
}

func TestSubmitAfterFailureReprocesses(t *testing.T) {
	index := repository.NewMemoryDedupIndex()
	queue := &recordingQueue{}
	svc := NewService(index, queue, nil)

	path := writeTemp(t, "edital.pdf", "%PDF-1.7")

	first, err := svc.Submit(context.Background(), path, entity.RunMetadata{})
	require.NoError(t, err)

	// Failed tasks release the content hash.
	require.NoError(t, index.UpdateStatus(context.Background(), first.TaskID, constants.TaskFailed, 3, "boom"))

	second, err := svc.Submit(context.Background(), path, entity.RunMetadata{})
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.TaskID, second.TaskID)
	assert.Len(t, queue.jobs, 2)
}

// staleLookupIndex misses a configured number of lookups before
// delegating, reproducing two submissions that both pass the dedup
// check before either has registered.
type staleLookupIndex struct {
	repository.DedupIndex
	misses int
}

func (s *staleLookupIndex) Lookup(ctx context.Context, hash string) (*repository.TaskRecord, error) {
	if s.misses > 0 {
		s.misses--
		return nil, nil
	}
	return s.DedupIndex.Lookup(ctx, hash)
}

func TestSubmitRegisterConflictReturnsDuplicate(t *testing.T) {
	index := &staleLookupIndex{DedupIndex: repository.NewMemoryDedupIndex(), misses: 2}
	queue := &recordingQueue{}
	svc := NewService(index, queue, nil)

	path := writeTemp(t, "edital.pdf", "%PDF-1.7 corpo do edital")

	first, err := svc.Submit(context.Background(), path, entity.RunMetadata{})
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	// The second submission sees no existing task, loses the register
	// race and resolves to the winner instead of creating a second task.
	second, err := svc.Submit(context.Background(), path, entity.RunMetadata{})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.TaskID, second.TaskID)
	assert.Len(t, queue.jobs, 1, "only the winning registration enqueues")
}

func TestHashFileStable(t *testing.T) {
	path := writeTemp(t, "f.pdf", "abc")
	h1, err := HashFile(path)
	require.NoError(t, err)
	h2, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
