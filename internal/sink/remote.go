package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// S3Client is the subset of the AWS S3 SDK the remote tier needs,
// abstracted for dependency injection and testing with fakes.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// RemoteConfig configures the remote upload tier.
type RemoteConfig struct {
	Client       S3Client
	Bucket       string
	Prefix       string
	ScanInterval time.Duration
	CloseTimeout time.Duration
	MaxRetries   int
	Metrics      *Metrics
	Logger       *zerolog.Logger
}

// RemoteSink composes a local Sink with an upload worker: Emit still goes
// to local first; the worker scans completed fixture files and copies
// them to the remote store in batches. A failed upload stays unmarked in
// seen, so the next scan pass retries it; the local file remains until
// upload succeeds.
type RemoteSink struct {
	*Sink
	cfg RemoteConfig

	mu   sync.Mutex
	seen map[string]bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRemote wraps a local Sink with an S3 upload tier.
func NewRemote(local *Sink, cfg RemoteConfig) *RemoteSink {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 2 * time.Second
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	r := &RemoteSink{
		Sink:   local,
		cfg:    cfg,
		seen:   make(map[string]bool),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go r.uploadLoop()
	return r
}

// Emit is inherited from the embedded local Sink: it persists locally
// first, and the upload worker picks the resulting file up on its next
// scan pass.

func (r *RemoteSink) uploadLoop() {
	ticker := time.NewTicker(r.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.scanAndUpload(context.Background())
			close(r.doneCh)
			return
		case <-ticker.C:
			r.scanAndUpload(context.Background())
		}
	}
}

// scanAndUpload walks the local store root and uploads every completed
// fixture file not yet marked as uploaded; in-progress staging files are
// skipped.
func (r *RemoteSink) scanAndUpload(ctx context.Context) {
	root := r.Sink.cfg.Store.Root
	var batch []string

	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if staging, _ := filepath.Match("*.tmp-*", info.Name()); staging {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		r.mu.Lock()
		already := r.seen[rel]
		r.mu.Unlock()
		if !already {
			batch = append(batch, rel)
		}
		return nil
	})

	if len(batch) == 0 {
		return
	}

	start := time.Now()
	for _, rel := range batch {
		if err := r.uploadOne(ctx, rel); err != nil {
			r.logWarn(fmt.Sprintf("remote sink: upload %s failed, will retry: %v", rel, err))
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.UploadBatches.WithLabelValues("failure").Inc()
			}
			continue
		}
		r.mu.Lock()
		r.seen[rel] = true
		r.mu.Unlock()
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.UploadBatches.WithLabelValues("success").Inc()
		r.cfg.Metrics.UploadLatency.Observe(time.Since(start).Seconds())
	}
}

func (r *RemoteSink) uploadOne(ctx context.Context, rel string) error {
	full := filepath.Join(r.Sink.cfg.Store.Root, rel)
	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("remote sink: read %s: %w", rel, err)
	}

	key := rel
	if r.cfg.Prefix != "" {
		key = filepath.ToSlash(filepath.Join(r.cfg.Prefix, rel))
	}

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		_, err := r.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(r.cfg.Bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("remote sink: put %s after %d attempts: %w", key, r.cfg.MaxRetries, lastErr)
}

// Close drains pending uploads within CloseTimeout, then closes the local
// sink.
func (r *RemoteSink) Close() error {
	close(r.stopCh)

	select {
	case <-r.doneCh:
	case <-time.After(r.cfg.CloseTimeout):
		r.logWarn("remote sink: close timed out waiting for pending uploads")
	}
	return r.Sink.Close()
}

func (r *RemoteSink) logWarn(msg string) {
	logger := r.cfg.Logger
	if logger == nil {
		logger = &log.Logger
	}
	logger.Warn().Msg(msg)
}
