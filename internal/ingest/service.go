package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/licitalab/editalscan/internal/entity"
)

// Service feeds documents found on disk into the intake pipeline. It is
// the filesystem counterpart of the gRPC submission surface.
type Service struct {
	submitter Submitter
	log       *slog.Logger
}

func NewService(submitter Submitter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{submitter: submitter, log: log}
}

// Run consumes watcher events until the context is cancelled. Submit
// errors are logged, never fatal: one broken file must not stop intake.
func (s *Service) Run(ctx context.Context, cfg WatchConfig) error {
	events, errs, err := StartWatcher(ctx, cfg, s.log)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	s.log.Info("ingest.watching", "roots", cfg.Roots, "initial_scan", cfg.InitialScan)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-events:
			if !ok {
				return nil
			}
			s.submit(ctx, path)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			s.log.Error("ingest.watch_error", "error", err)
		}
	}
}

// ScanDirectory walks root once and submits every PDF it finds. Hidden
// files and directories are skipped.
func (s *Service) ScanDirectory(ctx context.Context, root string) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isPDF(path) {
			return nil
		}
		stats.Matched++

		res, err := s.submitter.Submit(ctx, path, MetadataFromPath(path))
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, FileResult{
			Path:      path,
			TaskID:    res.TaskID.String(),
			Duplicate: res.Duplicate,
		})
		stats.Submitted++
		if res.Duplicate {
			stats.Duplicate++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (s *Service) submit(ctx context.Context, path string) {
	res, err := s.submitter.Submit(ctx, path, MetadataFromPath(path))
	if err != nil {
		s.log.Error("ingest.submit_failed", "path", path, "error", err)
		return
	}
	if res.Duplicate {
		s.log.Info("ingest.duplicate", "path", path, "task_id", res.TaskID)
		return
	}
	s.log.Info("ingest.submitted", "path", path, "task_id", res.TaskID)
}

var (
	yearSegment = regexp.MustCompile(`^(19|20)\d{2}$`)
	uasgSegment = regexp.MustCompile(`^\d{5,7}$`)
	pregaoName  = regexp.MustCompile(`(\d{1,5})[-_](\d{4})`)
)

// MetadataFromPath derives run metadata from the conventional intake
// layout {root}/{ano}/{uasg}/{numero}-{ano}.pdf. Missing segments simply
// stay empty; the AI extraction fills them later.
func MetadataFromPath(path string) entity.RunMetadata {
	var meta entity.RunMetadata

	dir := filepath.Dir(path)
	for dir != "." && dir != string(filepath.Separator) {
		seg := filepath.Base(dir)
		switch {
		case meta.UASG == "" && uasgSegment.MatchString(seg):
			meta.UASG = seg
		case meta.Ano == 0 && yearSegment.MatchString(seg):
			meta.Ano, _ = strconv.Atoi(seg)
		}
		dir = filepath.Dir(dir)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := pregaoName.FindStringSubmatch(base); m != nil {
		meta.NumeroPregao = m[1] + "/" + m[2]
		if meta.Ano == 0 {
			meta.Ano, _ = strconv.Atoi(m[2])
		}
	}
	return meta
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
