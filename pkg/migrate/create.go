package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

const migrationSkeleton = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named
// <dir>/<UTC timestamp>_<slug>.sql and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("migrations dir is required")
	}
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migrations dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format(versionLayout), slug))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, migrationSkeleton, slug); err != nil {
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
