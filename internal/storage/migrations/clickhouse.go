package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	chstore "solana-trade-engine/internal/storage/clickhouse"
)

// RunClickhouseMigrations applies all embedded SQL files in lexical
// order. Each file may contain several statements; the driver does not
// support multiquery Exec, so statements are split on semicolons.
// Migration files must not contain semicolons inside string literals.
func RunClickhouseMigrations(ctx context.Context, conn *chstore.Conn) error {
	entries, err := fs.ReadDir(ClickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		for _, stmt := range splitStatements(string(data)) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}

	return nil
}

// splitStatements splits SQL content into statements by semicolon,
// dropping blank lines and -- comments.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
