// Package migrations applies the embedded schema for each supported driver.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/felixgeelhaar/thermae/internal/shared/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var schemaFS embed.FS

// Run executes every *.up.sql migration for the connection's driver in
// file-name order. Statements are idempotent (IF NOT EXISTS).
func Run(ctx context.Context, conn database.Connection) error {
	dir := conn.Driver().String()

	files, err := upFiles(dir)
	if err != nil {
		return err
	}

	for _, file := range files {
		migration, err := schemaFS.ReadFile(dir + "/" + file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if _, err := conn.Exec(ctx, string(migration)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}
	return nil
}

// SQLiteSchema returns the concatenated SQLite schema, for tests that open
// their own in-memory database.
func SQLiteSchema() (string, error) {
	files, err := upFiles("sqlite")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, file := range files {
		migration, err := schemaFS.ReadFile("sqlite/" + file)
		if err != nil {
			return "", err
		}
		b.Write(migration)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func upFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(schemaFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
