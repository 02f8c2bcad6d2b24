package sheetwatch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// WorksheetSnapshot is the full cell grid of one worksheet as returned by the API.
type WorksheetSnapshot struct {
	Name string
	Rows [][]string
}

// RowsWithData counts rows holding at least one non-blank cell.
func (s *WorksheetSnapshot) RowsWithData() int {
	return len(Filter(s.Rows, func(row []string) bool {
		return slices.ContainsFunc(row, func(cell string) bool {
			return strings.TrimSpace(cell) != ""
		})
	}))
}

type hashedWorksheet struct {
	Worksheet string     `json:"worksheet"`
	Data      [][]string `json:"data"`
}

// ContentHash digests the snapshots in the given order. Identical inputs
// always produce the same hash; any cell, name or order change produces a different one.
func ContentHash(snapshots []*WorksheetSnapshot) (string, error) {
	entries := make([]hashedWorksheet, 0, len(snapshots))
	for _, s := range snapshots {
		rows := s.Rows
		if rows == nil {
			rows = [][]string{}
		}
		entries = append(entries, hashedWorksheet{Worksheet: s.Name, Data: rows})
	}
	bs, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode snapshots: %w", err)
	}
	sum := sha256.Sum256(bs)
	return hex.EncodeToString(sum[:]), nil
}
