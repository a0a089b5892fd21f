package sink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/simreplay/internal/fixture"
)

type fakeS3 struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, *params.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func TestRemoteSinkUploadsPersistedFixtures(t *testing.T) {
	local := newTestSink(t, Config{BufferSize: 8, BatchSize: 100})
	client := &fakeS3{}
	r := NewRemote(local, RemoteConfig{
		Client:       client,
		Bucket:       "fixtures",
		Prefix:       "runs/run-1",
		ScanInterval: 10 * time.Millisecond,
	})

	r.Emit(traceEvent("add", 0))
	require.NoError(t, local.Flush())

	require.Eventually(t, func() bool {
		return len(client.uploaded()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, client.uploaded()[0], "runs/run-1/")

	require.NoError(t, r.Close())
}

func TestRemoteSinkCloseDrainsPendingUploads(t *testing.T) {
	store := fixture.NewStore(t.TempDir())
	local := New(Config{BufferSize: 8, BatchSize: 100, FlushInterval: 10 * time.Millisecond, Store: store})
	client := &fakeS3{}
	r := NewRemote(local, RemoteConfig{
		Client:       client,
		Bucket:       "fixtures",
		ScanInterval: time.Hour, // only the close-time scan may pick the file up
	})

	r.Emit(traceEvent("add", 0))
	require.NoError(t, local.Flush())
	require.NoError(t, r.Close())

	assert.Len(t, client.uploaded(), 1)
}
