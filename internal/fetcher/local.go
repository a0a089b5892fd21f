package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/evalgo/simreplay/internal/fixture"
)

// endpointFiles are the four conventional per-fixture files.
var endpointFiles = []string{"input.json", "golden_output.json", "stubs.json", "metadata.json"}

// LocalSource copies fixtures from a local directory tree laid out the
// same way the cache is: root/service/endpoint/fixture_id/*.json.
type LocalSource struct {
	Root string
}

// ListFixtureIDs lists the fixture_id subdirectories under
// root/service/endpoint.
func (s *LocalSource) ListFixtureIDs(ctx context.Context, service, endpoint string) ([]string, error) {
	dir := filepath.Join(s.Root, service, endpoint)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("local source: read %s: %w", dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// FetchFixture copies the four conventional files for one fixture id.
func (s *LocalSource) FetchFixture(ctx context.Context, service, endpoint, fixtureID, destDir string) error {
	srcDir := filepath.Join(s.Root, fixture.EndpointDir(service, endpoint, fixtureID))
	for _, name := range endpointFiles {
		if err := copyFile(filepath.Join(srcDir, name), filepath.Join(destDir, name)); err != nil {
			return fmt.Errorf("local source: copy %s: %w", name, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
