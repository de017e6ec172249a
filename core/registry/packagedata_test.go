package registry

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/uetools/regcache/core/cursor"
)

// TestPackageDataRoundTripLatest verifies package rows round trip with the
// cooked hash present.
func TestPackageDataRoundTripLatest(t *testing.T) {
	v := Latest()
	pool := testPool(t, "/Game/Maps/Entry", "/Game/Maps/Entry2")

	entries := []PackageDataEntry{
		{
			PackageName: 0,
			DiskSize:    1 << 20,
			Guid:        uuid.MustParse("0d9afc8d-6b86-4a07-a322-4d83c6a1e1fa"),
			CookedHash:  [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			Flags:       0x8,
		},
		{PackageName: 1, DiskSize: -1},
	}

	w := cursor.NewWriter()
	EncodePackageData(w, v, entries)

	back, err := DecodePackageData(cursor.New(w.Bytes()), v, pool)
	if err != nil {
		t.Fatalf("DecodePackageData failed: %v", err)
	}
	if !reflect.DeepEqual(back, entries) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, entries)
	}

	w2 := cursor.NewWriter()
	EncodePackageData(w2, v, back)
	if !bytes.Equal(w2.Bytes(), w.Bytes()) {
		t.Error("re-encode did not reproduce the original bytes")
	}
}

// TestPackageDataCookedHashGated verifies the hash field is skipped when
// the custom table does not declare it.
func TestPackageDataCookedHashGated(t *testing.T) {
	v := NewFormatVersion(nil)
	pool := testPool(t, "/Game/Old")

	entries := []PackageDataEntry{{PackageName: 0, DiskSize: 512}}

	w := cursor.NewWriter()
	EncodePackageData(w, v, entries)

	// count + (name + size + guid + flags): 4 + 4 + 8 + 16 + 4.
	if got, want := len(w.Bytes()), 4+4+8+16+4; got != want {
		t.Fatalf("encoded %d bytes, want %d", got, want)
	}

	back, err := DecodePackageData(cursor.New(w.Bytes()), v, pool)
	if err != nil {
		t.Fatal(err)
	}
	if back[0].CookedHash != ([16]byte{}) {
		t.Errorf("CookedHash = %v, want zero when gated off", back[0].CookedHash)
	}
}

// TestPackageDataDuplicatesPreserved verifies duplicate package-name rows
// stay duplicated in array order; the table is not deduplicated.
func TestPackageDataDuplicatesPreserved(t *testing.T) {
	v := NewFormatVersion(nil)
	pool := testPool(t, "/Game/Twice")

	entries := []PackageDataEntry{
		{PackageName: 0, DiskSize: 1},
		{PackageName: 0, DiskSize: 2},
	}

	w := cursor.NewWriter()
	EncodePackageData(w, v, entries)
	back, err := DecodePackageData(cursor.New(w.Bytes()), v, pool)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[0].DiskSize != 1 || back[1].DiskSize != 2 {
		t.Errorf("rows = %+v", back)
	}
}

// TestPackageDataRejectBadIndex verifies the package-name index is
// validated against the pool.
func TestPackageDataRejectBadIndex(t *testing.T) {
	v := NewFormatVersion(nil)
	pool := testPool(t, "/Game/One")

	w := cursor.NewWriter()
	EncodePackageData(w, v, []PackageDataEntry{{PackageName: 3}})

	_, err := DecodePackageData(cursor.New(w.Bytes()), v, pool)
	var ierr *IndexError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected IndexError, got %v", err)
	}
}

// TestPackageDataHugeCountFailsCleanly verifies a corrupt row count far
// past the stream's remaining bytes fails with an end-of-stream error
// rather than attempting a matching allocation.
func TestPackageDataHugeCountFailsCleanly(t *testing.T) {
	pool := testPool(t, "A")

	w := cursor.NewWriter()
	w.WriteU32(0xffffffff, "count")
	_, err := DecodePackageData(cursor.New(w.Bytes()), NewFormatVersion(nil), pool)
	var eof *cursor.EOFError
	if !errors.As(err, &eof) {
		t.Fatalf("expected EOFError, got %v", err)
	}
}
