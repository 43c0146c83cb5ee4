package main

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samirrijal/trailwhisper/internal/app"
	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/config"
	"github.com/samirrijal/trailwhisper/internal/pkg/logging"
)

// ingestor imports FIT files for one user from directories or zip exports:
//
//	ingestor <user-id> <dir|file.fit|export.zip>...
func main() {
	if len(os.Args) < 3 {
		log.Fatal("usage: ingestor <user-id> <dir|file.fit|export.zip>...")
	}
	userID := os.Args[1]

	cfg, err := config.Load("trailwhisper-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	infra, err := app.Open(ctx, cfg, app.Options{Cache: true, Publisher: true})
	if err != nil {
		log.Fatalf("infra: %v", err)
	}
	defer infra.Close()

	uploads := usecases.NewUploadService(infra.Decoder(), infra.Activities, infra.Archive, infra.Publisher, infra.Cache, cfg.Upload.Workers)

	var files []usecases.UploadFile
	for _, p := range os.Args[2:] {
		found, err := collect(p, int64(cfg.Upload.MaxFileSizeMB)<<20)
		if err != nil {
			log.Fatalf("%s: %v", p, err)
		}
		files = append(files, found...)
	}
	slog.Info("importing", "user_id", userID, "files", len(files))

	var uploaded, failed int
	for start := 0; start < len(files); start += cfg.Upload.MaxFiles {
		batch := files[start:min(start+cfg.Upload.MaxFiles, len(files))]
		for _, r := range uploads.ProcessBatch(ctx, userID, batch) {
			if r.Status == domain.UploadDone {
				uploaded++
				continue
			}
			failed++
			slog.Warn("file rejected", "file", r.FileName, "error", r.Error, "retryable", r.Retryable)
		}
	}

	slog.Info("import complete", "uploaded", uploaded, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// collect reads every .fit file under path. Zip archives are opened and
// their .fit entries read in place. Files over maxBytes are skipped.
func collect(path string, maxBytes int64) ([]usecases.UploadFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return collectFile(path, maxBytes)
	}

	var files []usecases.UploadFile
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		found, err := collectFile(p, maxBytes)
		if err != nil {
			return err
		}
		files = append(files, found...)
		return nil
	})
	return files, err
}

func collectFile(path string, maxBytes int64) ([]usecases.UploadFile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return collectZip(path, maxBytes)
	case ".fit":
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > maxBytes {
			slog.Warn("skipping oversized file", "file", path, "bytes", info.Size())
			return nil, nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []usecases.UploadFile{{Name: filepath.Base(path), Data: data}}, nil
	default:
		return nil, nil
	}
}

func collectZip(path string, maxBytes int64) ([]usecases.UploadFile, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	var files []usecases.UploadFile
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".fit") {
			continue
		}
		if int64(f.UncompressedSize64) > maxBytes {
			slog.Warn("skipping oversized entry", "zip", path, "file", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxBytes+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		files = append(files, usecases.UploadFile{Name: filepath.Base(f.Name), Data: data})
	}
	return files, nil
}
