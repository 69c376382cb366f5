package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tendermatch/internal"
)

type fakeStore struct {
	saved   []*internal.Product
	saveErr error
}

func (s *fakeStore) Prefilter(ctx context.Context, q PrefilterQuery) ([]internal.Product, error) {
	out := make([]internal.Product, 0, len(s.saved))
	for _, p := range s.saved {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeStore) Save(ctx context.Context, p *internal.Product) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, p)
	return nil
}

func (s *fakeStore) DeleteByID(ctx context.Context, id string) error { return nil }

func (s *fakeStore) CountByVendor(ctx context.Context, vendorID string) (int, error) {
	return len(s.saved), nil
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const copierHeader = "Manufacturer,Model,Category,Speed,Min Volume,Max Volume,Cost,Installation,Profit Margin,CPC Mono,CPC Colour"

func TestImportFilePartialSuccess(t *testing.T) {
	path := writeCSV(t,
		copierHeader,
		"Ricoh,IM C3010,A3 MFP,30,2000,18000,2400,150,450,0.45,4.5",
		"Canon,iR-ADV DX C3930,A3 MFP,30,1500,20000,2800,150,500,,4.2",
		"Sharp,BP-50C26,A4 MFP,26,1000,12000,1900,120,380,0.5,4.8",
	)

	store := &fakeStore{}
	im := NewImporter(store, 0, nil)
	result, err := im.ImportFile(context.Background(), path, "vendor-1", internal.CategoryPhotocopier)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	if result.Total != 3 || result.Valid != 2 || result.Invalid != 1 || result.Saved != 2 {
		t.Fatalf("result = %+v, want total 3 / valid 2 / invalid 1 / saved 2", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
	got := result.Errors[0].Error()
	if got != "Row 3: Missing required field 'costs.cpcRates.A4Mono'" {
		t.Fatalf("error = %q", got)
	}
	if len(store.saved) != 2 {
		t.Fatalf("saved %d products", len(store.saved))
	}
	for _, p := range store.saved {
		if p.ID == "" || p.VendorID != "vendor-1" {
			t.Fatalf("saved product incomplete: %+v", p)
		}
	}
}

func TestImportFileMissingColumnRejectsUpload(t *testing.T) {
	path := writeCSV(t,
		"Manufacturer,Model,Category,Speed,Max Volume,Cost",
		"Ricoh,IM C3010,A3 MFP,30,18000,2400",
	)

	im := NewImporter(&fakeStore{}, 0, nil)
	_, err := im.ImportFile(context.Background(), path, "vendor-1", internal.CategoryPhotocopier)
	if err == nil {
		t.Fatal("expected upload rejection")
	}
	if !strings.Contains(err.Error(), "profitMargin") {
		t.Fatalf("error = %v, want missing column names", err)
	}
}

func TestImportFileSaveFailureCounted(t *testing.T) {
	path := writeCSV(t,
		copierHeader,
		"Ricoh,IM C3010,A3 MFP,30,2000,18000,2400,150,450,0.45,4.5",
	)

	store := &fakeStore{saveErr: errors.New("disk full")}
	im := NewImporter(store, 0, nil)
	result, err := im.ImportFile(context.Background(), path, "vendor-1", internal.CategoryPhotocopier)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if result.Valid != 1 || result.Saved != 0 || len(result.Errors) != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestImportFileCancelledContext(t *testing.T) {
	path := writeCSV(t,
		copierHeader,
		"Ricoh,IM C3010,A3 MFP,30,2000,18000,2400,150,450,0.45,4.5",
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	im := NewImporter(&fakeStore{}, 0, nil)
	_, err := im.ImportFile(ctx, path, "vendor-1", internal.CategoryPhotocopier)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
