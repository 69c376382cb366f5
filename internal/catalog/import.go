package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tendermatch/internal"
	"tendermatch/internal/tabular"
)

// Importer turns vendor pricing uploads into stored catalog products.
// Bad rows are rejected individually; the batch always completes.
type Importer struct {
	store    Store
	maxBytes int64
	log      *slog.Logger
}

func NewImporter(store Store, maxBytes int64, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{store: store, maxBytes: maxBytes, log: log}
}

// ImportFile reads a CSV or spreadsheet upload and saves every row that
// normalizes cleanly. A missing required column rejects the whole upload;
// anything row-level is reported in the result and skipped.
func (im *Importer) ImportFile(ctx context.Context, path, vendorID string, category internal.ServiceCategory) (*internal.ImportResult, error) {
	batchID := uuid.NewString()
	log := im.log.With("batch_id", batchID, "vendor_id", vendorID, "category", string(category))
	log.Info("catalog.import.start", "path", path)

	schema := CatalogSchema(category)
	table, err := tabular.ReadFile(path, schema, im.maxBytes)
	if err != nil {
		log.Error("catalog.import.read_failed", "err", err)
		return nil, err
	}

	if missing := tabular.MissingRequired(table.Headers, schema); len(missing) > 0 {
		log.Error("catalog.import.missing_columns", "columns", missing)
		return nil, fmt.Errorf("upload missing required columns: %s", strings.Join(missing, ", "))
	}

	result := &internal.ImportResult{Total: len(table.Rows)}
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		product, warnings, rowErrs := Normalize(row, vendorID, category)
		result.Warnings = append(result.Warnings, warnings...)
		if len(rowErrs) > 0 {
			result.Invalid++
			result.Errors = append(result.Errors, rowErrs...)
			log.Warn("catalog.import.row_rejected", "row", row.Number, "errors", len(rowErrs))
			continue
		}
		result.Valid++

		product.ID = uuid.NewString()
		if err := im.store.Save(ctx, product); err != nil {
			result.Errors = append(result.Errors, internal.RowError{
				Row:     row.Number,
				Message: fmt.Sprintf("Save failed: %v", err),
			})
			log.Error("catalog.import.save_failed", "row", row.Number, "err", err)
			continue
		}
		result.Saved++
	}

	log.Info("catalog.import.done",
		"total", result.Total, "valid", result.Valid,
		"invalid", result.Invalid, "saved", result.Saved)
	return result, nil
}
