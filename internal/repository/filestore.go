package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
)

// FileResultStore writes results to disk under an organized layout:
//
//	{base}/{ano}/{uasg}/{numero_pregao}/resultado.json
//	{base}/{ano}/{uasg}/{numero_pregao}/summary.json
//
// Missing metadata fields fall back to placeholder segments so every
// result still lands in a stable location.
type FileResultStore struct {
	base string
	log  *slog.Logger
	now  func() time.Time
}

func NewFileResultStore(base string, log *slog.Logger) *FileResultStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileResultStore{base: base, log: log, now: time.Now}
}

func (s *FileResultStore) Save(_ context.Context, result *entity.FinalResult) error {
	dir := s.resultDir(result)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create result dir: %v", common.ErrStorage, err)
	}

	if err := writeJSON(filepath.Join(dir, "resultado.json"), result); err != nil {
		return err
	}
	summary := map[string]any{
		"task_id":       result.TaskID,
		"filename":      result.Filename,
		"processed_at":  result.ProcessedAt,
		"quality_score": result.QualityScore,
		"summary":       result.Summary,
		"risk_level":    result.RiskAnalysis.Summary.OverallLevel,
	}
	if err := writeJSON(filepath.Join(dir, "summary.json"), summary); err != nil {
		return err
	}

	s.log.Info("filestore.saved", "task_id", result.TaskID, "dir", dir)
	return nil
}

func (s *FileResultStore) Get(_ context.Context, taskID uuid.UUID) (*entity.FinalResult, error) {
	var found *entity.FinalResult
	err := filepath.WalkDir(s.base, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != nil || d.IsDir() || d.Name() != "resultado.json" {
			return err
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		var res entity.FinalResult
		if jerr := json.Unmarshal(data, &res); jerr != nil {
			return nil // skip unrelated files
		}
		if res.TaskID == taskID {
			found = &res
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan results: %v", common.ErrStorage, err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: result for task %s", common.ErrNotFound, taskID)
	}
	return found, nil
}

func (s *FileResultStore) resultDir(result *entity.FinalResult) string {
	ano := result.Metadata.Ano
	if ano == 0 {
		ano = s.now().Year()
	}
	uasg := result.Metadata.UASG
	if uasg == "" {
		uasg = "sem_uasg"
	}
	numero := sanitizeSegment(result.Metadata.NumeroPregao)
	if numero == "" {
		numero = "sem_numero_" + result.TaskID.String()
	}
	return filepath.Join(s.base, fmt.Sprintf("%d", ano), uasg, numero)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", common.ErrStorage, filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrStorage, filepath.Base(path), err)
	}
	return nil
}

// sanitizeSegment makes a metadata value safe as a directory name.
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "", ":", "-")
	return replacer.Replace(s)
}
