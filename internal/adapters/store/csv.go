package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// CSVSource loads records from a CSV file with a header row. Columns listed
// in ArrayColumns are split on ArraySeparator into token arrays; every other
// column becomes a scalar attribute.
type CSVSource struct {
	// Path of the CSV file.
	Path string
	// IDColumn holds the unique record identifier.
	IDColumn string
	// ArrayColumns are parsed as token arrays.
	ArrayColumns []string
	// ArraySeparator defaults to a single space.
	ArraySeparator string
}

var _ ports.RecordSource = (*CSVSource)(nil)

// Load reads the whole file into records, in file order.
func (src *CSVSource) Load(ctx context.Context) ([]domain.Record, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", src.Path, err)
	}
	defer f.Close()

	sep := src.ArraySeparator
	if sep == "" {
		sep = " "
	}
	arrayCols := make(map[string]bool, len(src.ArrayColumns))
	for _, c := range src.ArrayColumns {
		arrayCols[c] = true
	}

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idIdx := -1
	for i, col := range header {
		if col == src.IDColumn {
			idIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("csv %s has no id column %q", src.Path, src.IDColumn)
	}

	var records []domain.Record
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rec := domain.Record{
			ID:     row[idIdx],
			Fields: make(map[string]string),
			Arrays: make(map[string][]string),
		}
		for i, col := range header {
			if i == idIdx || row[i] == "" {
				continue
			}
			if arrayCols[col] {
				rec.Arrays[col] = strings.Split(row[i], sep)
			} else {
				rec.Fields[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
