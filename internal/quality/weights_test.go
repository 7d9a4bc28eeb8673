package quality

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licitalab/editalscan/internal/entity"
)

func TestDefaultWeightsValid(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, w.Validate())
	assert.InDelta(t, 0.20, w.TextExtraction, 1e-9)
	assert.InDelta(t, 0.25, w.TableExtraction, 1e-9)
	assert.InDelta(t, 0.25, w.AIExtraction, 1e-9)
	assert.InDelta(t, 0.15, w.Completeness, 1e-9)
	assert.InDelta(t, 0.15, w.Consistency, 1e-9)
}

func TestLoadWeightsFileDefaults(t *testing.T) {
	w, err := LoadWeightsFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), w)
}

func TestLoadWeightsFileOverlay(t *testing.T) {
	// The same file carries the risk scoring parameters; only the
	// quality_weights section applies here, and absent keys keep their
	// defaults.
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
similarity_threshold: 0.8
quality_weights:
  text_extraction: 0.30
  table_extraction: 0.15
`), 0o644))

	w, err := LoadWeightsFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.30, w.TextExtraction, 1e-9)
	assert.InDelta(t, 0.15, w.TableExtraction, 1e-9)
	assert.InDelta(t, 0.25, w.AIExtraction, 1e-9)
	assert.InDelta(t, 0.15, w.Completeness, 1e-9)
	assert.InDelta(t, 0.15, w.Consistency, 1e-9)
}

func TestLoadWeightsFileRejectsBrokenSum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
quality_weights:
  text_extraction: 0.90
`), 0o644))

	_, err := LoadWeightsFile(path)
	assert.Error(t, err)
}

func TestWeightsValidate(t *testing.T) {
	w := DefaultWeights()
	w.Consistency = -0.1
	assert.Error(t, w.Validate())

	w = DefaultWeights()
	w.Consistency = 0.5
	assert.Error(t, w.Validate())
}

func TestScoreHonorsConfiguredWeights(t *testing.T) {
	w := Weights{
		TextExtraction:  1.0,
		TableExtraction: 0,
		AIExtraction:    0,
		Completeness:    0,
		Consistency:     0,
	}
	require.NoError(t, w.Validate())
	a := NewAggregator(w, nil)

	c := entity.NewProcessingContext(uuid.New(), "t-1", "/tmp/e.pdf")
	c.RawText = strings.Repeat("x", 8000) // text sub-score 1.0, all else ignored

	a.Score(c)
	assert.InDelta(t, 100.0, c.QualityScore, 1e-9)
}
