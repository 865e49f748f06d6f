// Package dataset acquires trip extracts from local disk, HTTP or S3 and registers
// their union as one table in the embedded engine.
package dataset

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/chrissnell/tripcharts/internal/tabular"
)

var (
	// ErrEmptySourceList is returned when a load is requested with no sources
	ErrEmptySourceList = errors.New("no dataset sources configured")
	// ErrUnsupportedSource is returned for locations with an unknown scheme
	ErrUnsupportedSource = errors.New("unsupported source location")
	// ErrS3NotConfigured is returned for s3:// sources when no S3 endpoint is set
	ErrS3NotConfigured = errors.New("s3 source requested but dataset.s3 is not configured")
)

// Scheme is where a source is read from
type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeHTTP Scheme = "http"
	SchemeS3   Scheme = "s3"
)

// Source is one parsed dataset location
type Source struct {
	Location string
	Scheme   Scheme
	Format   tabular.Format

	// Path is the local path for file sources
	Path string
	// Bucket and Key address s3 sources
	Bucket string
	Key    string
}

// BaseName returns the file name part of the location
func (s Source) BaseName() string {
	switch s.Scheme {
	case SchemeFile:
		return path.Base(strings.ReplaceAll(s.Path, "\\", "/"))
	case SchemeS3:
		return path.Base(s.Key)
	default:
		u, err := url.Parse(s.Location)
		if err != nil {
			return path.Base(s.Location)
		}
		return path.Base(u.Path)
	}
}

// ParseSource interprets loc as a plain path, file:// URL, http(s):// URL or
// s3://bucket/key location.
func ParseSource(loc string) (Source, error) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return Source{}, fmt.Errorf("%w: empty location", ErrUnsupportedSource)
	}

	src := Source{Location: loc}

	switch {
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		u, err := url.Parse(loc)
		if err != nil {
			return Source{}, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
		}
		src.Scheme = SchemeHTTP
		src.Path = u.Path
	case strings.HasPrefix(loc, "s3://"):
		rest := strings.TrimPrefix(loc, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Source{}, fmt.Errorf("%w: %s must look like s3://bucket/key", ErrUnsupportedSource, loc)
		}
		src.Scheme = SchemeS3
		src.Bucket = bucket
		src.Key = key
		src.Path = key
	case strings.HasPrefix(loc, "file://"):
		src.Scheme = SchemeFile
		src.Path = strings.TrimPrefix(loc, "file://")
	case strings.Contains(loc, "://"):
		return Source{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, loc)
	default:
		src.Scheme = SchemeFile
		src.Path = loc
	}

	format, err := tabular.DetectFormat(src.Path)
	if err != nil {
		return Source{}, err
	}
	src.Format = format

	return src, nil
}

// ParseSources parses every location, failing on the first bad one
func ParseSources(locations []string) ([]Source, error) {
	if len(locations) == 0 {
		return nil, ErrEmptySourceList
	}

	sources := make([]Source, 0, len(locations))
	for _, loc := range locations {
		src, err := ParseSource(loc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
