package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of the AWS S3 SDK the fetcher needs, the same
// dependency-injection interface the sink's remote tier uses.
type S3Client interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source lists and downloads fixtures stored under
// s3://Bucket/Prefix/service/endpoint/fixture_id/*.json.
type S3Source struct {
	Client S3Client
	Bucket string
	Prefix string
}

func (s *S3Source) key(parts ...string) string {
	all := append([]string{s.Prefix}, parts...)
	return strings.TrimPrefix(path.Join(all...), "/")
}

// ListFixtureIDs lists distinct fixture_id "directories" under the
// service/endpoint prefix by inspecting common prefixes of listed keys.
func (s *S3Source) ListFixtureIDs(ctx context.Context, service, endpoint string) ([]string, error) {
	prefix := s.key(service, endpoint) + "/"
	out, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.Bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 source: list %s: %w", prefix, err)
	}

	var ids []string
	for _, cp := range out.CommonPrefixes {
		if cp.Prefix == nil {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
		if trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids, nil
}

// FetchFixture downloads the four conventional files for one fixture id.
func (s *S3Source) FetchFixture(ctx context.Context, service, endpoint, fixtureID, destDir string) error {
	for _, name := range endpointFiles {
		key := s.key(service, endpoint, fixtureID, name)
		if err := s.download(ctx, key, filepath.Join(destDir, name)); err != nil {
			return fmt.Errorf("s3 source: fetch %s: %w", key, err)
		}
	}
	return nil
}

func (s *S3Source) download(ctx context.Context, key, destPath string) error {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, out.Body)
	return err
}
