package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/identity"
)

// ItemWriter is the catalog write path the importer goes through, so
// imported rows get the same validation, defaults and cache invalidation as
// admin writes.
type ItemWriter interface {
	CreateItem(ctx context.Context, in identity.Input) (domain.CatalogItem, error)
	UpdateItem(ctx context.Context, id string, in identity.Input) (domain.CatalogItem, error)
}

// CSVImporter reads catalog CSV exports and creates or updates items.
type CSVImporter struct {
	reader *csv.Reader
	writer ItemWriter
	logger *log.Logger
}

func NewCSVImporter(r io.Reader, writer ItemWriter, logger *log.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CSVImporter{
		reader: csvr,
		writer: writer,
		logger: logger,
	}
}

// Result counts what Run did.
type Result struct {
	Created int
	Updated int
}

func (r Result) Total() int { return r.Created + r.Updated }

type csvRow struct {
	line  int
	input identity.Input
}

// Run parses CSV rows and writes one item per row that has a name. Rows
// without a name and with an image are continuation rows: their images
// belong to the item above.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return res, errors.New("read headers: missing name column")
	}

	var current *csvRow
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("read row %d: %w", line, err)
		}

		name := pick(record, index, "name")
		images := splitList(pick(record, index, "images"))
		if name == "" {
			// Continuation rows (images) belong to the current item.
			if current != nil && len(images) > 0 {
				current.input.Images = append(current.input.Images, images...)
			}
			continue
		}

		if current != nil {
			if err := i.save(ctx, current, &res); err != nil {
				return res, err
			}
		}
		current, err = parseRow(record, index, line)
		if err != nil {
			return res, err
		}
	}

	if current != nil {
		if err := i.save(ctx, current, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// save updates the row's item when it names an existing id and creates it
// otherwise.
func (i *CSVImporter) save(ctx context.Context, row *csvRow, res *Result) error {
	id := row.input.ID
	if id != "" {
		update := row.input
		update.ID = ""
		_, err := i.writer.UpdateItem(ctx, id, update)
		if err == nil {
			res.Updated++
			i.logger.Printf("importer: updated id=%s line=%d", id, row.line)
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("update item %q (line %d): %w", id, row.line, err)
		}
	}

	item, err := i.writer.CreateItem(ctx, row.input)
	if err != nil {
		return fmt.Errorf("create item %q (line %d): %w", *row.input.Name, row.line, err)
	}
	res.Created++
	i.logger.Printf("importer: created id=%s line=%d", item.ID, row.line)
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) (*csvRow, error) {
	in := identity.Input{ID: pick(record, index, "id")}
	in.Name = optional(record, index, "name")
	in.Description = optional(record, index, "description")
	in.Price = optional(record, index, "price")
	in.OriginalPrice = optional(record, index, "originalPrice")
	in.Category = optional(record, index, "category")
	in.Stock = optional(record, index, "stock")
	in.Images = splitList(pick(record, index, "images"))
	in.Sizes = splitList(pick(record, index, "sizes"))
	if _, ok := index["features"]; ok {
		in.Features = splitList(pick(record, index, "features"))
	}
	var err error
	if in.IsNew, err = optionalBool(record, index, "isNew"); err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	if in.IsPreOrder, err = optionalBool(record, index, "isPreOrder"); err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return &csvRow{line: line, input: in}, nil
}

// optional returns nil for an empty cell so the field keeps its default.
func optional(record []string, index map[string]int, key string) *string {
	v := pick(record, index, key)
	if v == "" {
		return nil
	}
	return &v
}

func optionalBool(record []string, index map[string]int, key string) (*bool, error) {
	v := pick(record, index, key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return &b, nil
}

// splitList splits a semicolon-separated cell.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
