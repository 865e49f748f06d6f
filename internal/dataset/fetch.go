package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/chrissnell/tripcharts/internal/constants"
	"github.com/chrissnell/tripcharts/internal/engine"
	"github.com/chrissnell/tripcharts/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher stages sources as local files the engine can read
type Fetcher struct {
	client      *http.Client
	s3          *minio.Client
	stagingDir  string
	concurrency int
	logger      *zap.SugaredLogger
}

// NewFetcher creates a fetcher from the dataset configuration
func NewFetcher(cfg config.DatasetData, logger *zap.SugaredLogger) (*Fetcher, error) {
	f := &Fetcher{
		client:      &http.Client{Timeout: cfg.FetchTimeout},
		stagingDir:  cfg.StagingDir,
		concurrency: cfg.FetchConcurrent,
		logger:      logger,
	}
	if f.concurrency <= 0 {
		f.concurrency = config.DefaultFetchConcurrent
	}

	if cfg.S3 != nil && cfg.S3.Endpoint != "" {
		mc, err := minio.New(cfg.S3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
			Secure: cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		f.s3 = mc
	}

	return f, nil
}

// Staged is the set of local files produced by Stage
type Staged struct {
	Files []engine.File
	dir   string
}

// Cleanup removes any files downloaded during staging.  Local sources are never touched.
func (s *Staged) Cleanup() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// Stage makes every source available on local disk, downloading remote ones in
// parallel.  The first failure cancels the remaining downloads and is returned.
func (f *Fetcher) Stage(ctx context.Context, sources []Source) (*Staged, error) {
	staged := &Staged{Files: make([]engine.File, len(sources))}

	needsDir := false
	for _, src := range sources {
		if src.Scheme != SchemeFile {
			needsDir = true
			break
		}
	}
	if needsDir {
		dir, err := os.MkdirTemp(f.stagingDir, "tripcharts-")
		if err != nil {
			return nil, fmt.Errorf("creating staging directory: %w", err)
		}
		staged.dir = dir
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			path, err := f.stage(gctx, i, src, staged.dir)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Location, err)
			}
			staged.Files[i] = engine.File{Path: path, Format: src.Format}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		staged.Cleanup()
		return nil, err
	}
	return staged, nil
}

func (f *Fetcher) stage(ctx context.Context, i int, src Source, dir string) (string, error) {
	switch src.Scheme {
	case SchemeFile:
		info, err := os.Stat(src.Path)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", src.Path)
		}
		return src.Path, nil

	case SchemeHTTP:
		dest := filepath.Join(dir, fmt.Sprintf("%02d-%s", i, src.BaseName()))
		return dest, f.download(ctx, src.Location, dest)

	case SchemeS3:
		if f.s3 == nil {
			return "", ErrS3NotConfigured
		}
		dest := filepath.Join(dir, fmt.Sprintf("%02d-%s", i, src.BaseName()))
		return dest, f.getObject(ctx, src.Bucket, src.Key, dest)
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, src.Location)
}

func (f *Fetcher) download(ctx context.Context, location, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", constants.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	f.logger.Debugf("downloading %s to %s", location, dest)
	return writeFile(dest, resp.Body)
}

func (f *Fetcher) getObject(ctx context.Context, bucket, key, dest string) error {
	obj, err := f.s3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	// Stat surfaces a missing object before we create the destination file
	if _, err := obj.Stat(); err != nil {
		return err
	}

	f.logger.Debugf("fetching s3://%s/%s to %s", bucket, key, dest)
	return writeFile(dest, obj)
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
