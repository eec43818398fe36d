package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var migrationFile = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir before goose sees it: the name
// must carry a unique 14-digit version, the Up section must come before the
// Down section, and StatementBegin/StatementEnd markers must pair up. All
// problems are reported together.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("migrations dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var errs error
	versions := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := migrationFile.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_snake_case.sql", name))
			continue
		}
		if other, dup := versions[m[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], other))
		}
		versions[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkSections(name, string(body)))
	}
	return errs
}

func checkSections(name, sql string) error {
	up := strings.Index(sql, "-- +goose Up")
	down := strings.Index(sql, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing -- +goose Up", name)
	case down < 0:
		return fmt.Errorf("%s: missing -- +goose Down", name)
	case down < up:
		return fmt.Errorf("%s: Down section precedes Up", name)
	}
	if begins, ends := strings.Count(sql, "-- +goose StatementBegin"), strings.Count(sql, "-- +goose StatementEnd"); begins != ends {
		return fmt.Errorf("%s: %d StatementBegin vs %d StatementEnd", name, begins, ends)
	}
	return nil
}
