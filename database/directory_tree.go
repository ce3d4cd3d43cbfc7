package database

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// DirectoryNode is one folder in the derived directory tree, with the
// number of assets cataloged directly inside it (not its subtree).
type DirectoryNode struct {
	Name       string           `json:"name"`
	Path       string           `json:"path"`
	AssetCount int              `json:"asset_count"`
	Children   []*DirectoryNode `json:"children,omitempty"`
}

// DirectoryTree derives the tree of unique directories from the assets
// table, with per-directory asset counts. Intermediate folders that hold no
// assets themselves still get a node when a descendant does.
func DirectoryTree(db *sql.DB) (*DirectoryNode, error) {
	queryBuilder := psql.Select("directory", "COUNT(*)").
		From("assets").
		GroupBy("directory").
		OrderBy("directory ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for DirectoryTree: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query directory counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var dir string
		var count int
		if err := rows.Scan(&dir, &count); err != nil {
			return nil, fmt.Errorf("failed to scan directory count row: %w", err)
		}
		counts[dir] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate directory count rows: %w", err)
	}

	root := &DirectoryNode{Name: "", Path: ""}
	nodes := map[string]*DirectoryNode{"": root}

	ensureNode := func(path string) *DirectoryNode {
		if node, ok := nodes[path]; ok {
			return node
		}
		parent := root
		var prefix string
		for _, part := range strings.Split(path, "/") {
			if prefix == "" {
				prefix = part
			} else {
				prefix = prefix + "/" + part
			}
			node, ok := nodes[prefix]
			if !ok {
				node = &DirectoryNode{Name: part, Path: prefix}
				parent.Children = append(parent.Children, node)
				nodes[prefix] = node
			}
			parent = node
		}
		return parent
	}

	paths := make([]string, 0, len(counts))
	for path := range counts {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		node := ensureNode(path)
		node.AssetCount = counts[path]
	}

	return root, nil
}
