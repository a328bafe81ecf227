package db

import (
	"context"
	"testing"

	"github.com/wikivault/wikivault/internal/contentstore"
)

// fakeFiles records Delete calls and serves fixed sizes.
type fakeFiles struct {
	sizes   map[string]int64
	deleted []string
}

func (f *fakeFiles) Delete(keys []string, _ contentstore.SaveType) {
	f.deleted = append(f.deleted, keys...)
}

func (f *fakeFiles) SizeOf(key string, _ contentstore.SaveType) int64 {
	return f.sizes[key]
}

func TestUsedByRoundTrip(t *testing.T) {
	tests := []struct {
		raw  string
		want []int64
	}{
		{"|7|12|", []int64{7, 12}},
		{"", nil},
		{"|7|", []int64{7}},
		{"|7|bogus|12|", []int64{7, 12}},
	}
	for _, tt := range tests {
		got := ParseUsedBy(tt.raw)
		if len(got) != len(tt.want) {
			t.Errorf("ParseUsedBy(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseUsedBy(%q)[%d] = %d, want %d", tt.raw, i, got[i], tt.want[i])
			}
		}
	}

	if s := JoinUsedBy([]int64{7, 12}); s != "|7|12|" {
		t.Errorf("JoinUsedBy = %q, want |7|12|", s)
	}
	if s := JoinUsedBy(nil); s != "" {
		t.Errorf("JoinUsedBy(nil) = %q, want empty", s)
	}
}

func TestUpsertObject_NaturalKeyReplace(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	o := &OfflineObject{
		URL:      "https://w/api.php?page=Varrock",
		Lang:     "en",
		Path:     contentstore.ComputeKey("https://w/api.php?page=Varrock", "en"),
		Status:   StatusSaved,
		UsedBy:   "|1|",
		SaveType: contentstore.SaveTypeReadingList,
	}
	if err := UpsertObject(ctx, database, o); err != nil {
		t.Fatal(err)
	}

	// Same natural key with a new owner list replaces the row.
	o.UsedBy = "|1|2|"
	if err := UpsertObject(ctx, database, o); err != nil {
		t.Fatal(err)
	}

	got, err := ObjectByURL(ctx, database, o.URL, "en", contentstore.SaveTypeReadingList)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("object not found after upsert")
	}
	if got.UsedBy != "|1|2|" {
		t.Errorf("usedby = %q, want |1|2|", got.UsedBy)
	}
}

func TestObjectByURL_Miss(t *testing.T) {
	database := testDB(t)
	got, err := ObjectByURL(context.Background(), database, "https://w/none", "en", contentstore.SaveTypeReadingList)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil for missing object, got %+v", got)
	}
}

func TestObjectsForPage_NoFalseSubstringMatch(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	// Owned by page 72, not page 7.
	o := &OfflineObject{
		URL: "https://w/a", Lang: "en", Path: "k1",
		Status: StatusSaved, UsedBy: "|72|", SaveType: contentstore.SaveTypeReadingList,
	}
	if err := UpsertObject(ctx, database, o); err != nil {
		t.Fatal(err)
	}

	objects, err := ObjectsForPage(ctx, database, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 0 {
		t.Errorf("page 7 should not own object used by page 72")
	}

	objects, err = ObjectsForPage(ctx, database, 72)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 1 {
		t.Errorf("page 72 should own one object, got %d", len(objects))
	}
}

func TestDeleteObjectsForPages(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	shared := &OfflineObject{
		URL: "https://w/shared", Lang: "en", Path: "kshared",
		Status: StatusSaved, UsedBy: "|7|12|", SaveType: contentstore.SaveTypeReadingList,
	}
	exclusive := &OfflineObject{
		URL: "https://w/exclusive", Lang: "en", Path: "kexcl",
		Status: StatusSaved, UsedBy: "|7|", SaveType: contentstore.SaveTypeReadingList,
	}
	archive := &OfflineObject{
		URL: "https://w/archive", Lang: "en", Path: "karch",
		Status: StatusSaved, UsedBy: "|7|", SaveType: contentstore.SaveTypeFullArchive,
	}
	for _, o := range []*OfflineObject{shared, exclusive, archive} {
		if err := UpsertObject(ctx, database, o); err != nil {
			t.Fatal(err)
		}
	}

	files := &fakeFiles{}
	if err := DeleteObjectsForPages(ctx, database, files, []int64{7}); err != nil {
		t.Fatal(err)
	}

	// Shared object survives with page 7 removed from its owner list.
	got, err := ObjectByURL(ctx, database, shared.URL, "en", contentstore.SaveTypeReadingList)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("shared object should survive")
	}
	if got.UsedBy != "|12|" {
		t.Errorf("shared usedby = %q, want |12|", got.UsedBy)
	}

	// Exclusive object and its files are gone.
	got, err = ObjectByURL(ctx, database, exclusive.URL, "en", contentstore.SaveTypeReadingList)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("exclusive object should be deleted")
	}
	if len(files.deleted) != 1 || files.deleted[0] != "kexcl" {
		t.Errorf("deleted files = %v, want [kexcl]", files.deleted)
	}

	// Full-archive objects are never touched by page-level deletion.
	got, err = ObjectByURL(ctx, database, archive.URL, "en", contentstore.SaveTypeFullArchive)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("full-archive object should be untouched")
	}
}

func TestTotalBytesForPage(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	for i, key := range []string{"ka", "kb"} {
		o := &OfflineObject{
			URL: "https://w/p" + string(rune('a'+i)), Lang: "en", Path: key,
			Status: StatusSaved, UsedBy: "|5|", SaveType: contentstore.SaveTypeReadingList,
		}
		if err := UpsertObject(ctx, database, o); err != nil {
			t.Fatal(err)
		}
	}

	files := &fakeFiles{sizes: map[string]int64{"ka": 100, "kb": 250}}
	total, err := TotalBytesForPage(ctx, database, files, 5)
	if err != nil {
		t.Fatal(err)
	}
	if total != 350 {
		t.Errorf("total = %d, want 350", total)
	}
}
