package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir validates the postgres and sqlite migration sets on disk.
func ValidateDir(root string) error {
	if root == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(root))
}

// ValidateFS checks filenames and goose headers in each dialect
// subdirectory, and that both dialects carry the same versions.
func ValidateFS(fsys fs.FS) error {
	pg, err := validateSet(fsys, SubdirFor(DialectPostgres))
	if err != nil {
		return err
	}
	lite, err := validateSet(fsys, SubdirFor(DialectSQLite))
	if err != nil {
		return err
	}

	if missing := diffVersions(pg, lite); len(missing) > 0 {
		return fmt.Errorf("sqlite migrations missing versions %s", strings.Join(missing, ", "))
	}
	if missing := diffVersions(lite, pg); len(missing) > 0 {
		return fmt.Errorf("postgres migrations missing versions %s", strings.Join(missing, ", "))
	}
	return nil
}

func validateSet(fsys fs.FS, dir string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		b, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}
		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
	}
	return seen, nil
}

func diffVersions(have, other map[string]string) []string {
	var missing []string
	for v := range have {
		if _, ok := other[v]; !ok {
			missing = append(missing, v)
		}
	}
	sort.Strings(missing)
	return missing
}
