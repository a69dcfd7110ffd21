package dayindex_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/afero"

	"animetrack/internal/dayindex"
)

func TestBuildFillsEveryDay(t *testing.T) {
	idx := dayindex.Build([]dayindex.Entry{
		{Day: "Mon", WorkID: 3},
		{Day: "Mon", WorkID: 1},
		{Day: "Mon", WorkID: 3},
		{Day: "Fri", WorkID: 2},
		{Day: "Xyz", WorkID: 9},
	})
	if len(idx) != 7 {
		t.Fatalf("expected 7 tokens, got %d", len(idx))
	}
	if !reflect.DeepEqual(idx["Mon"], []int64{3, 1}) {
		t.Fatalf("unexpected Mon entries: %v", idx["Mon"])
	}
	if len(idx["Tue"]) != 0 || idx["Tue"] == nil {
		t.Fatalf("expected empty non-nil Tue, got %#v", idx["Tue"])
	}
	if idx.Count() != 3 {
		t.Fatalf("expected 3 entries, got %d", idx.Count())
	}
}

func TestToday(t *testing.T) {
	monday := time.Date(2021, time.May, 3, 12, 0, 0, 0, time.UTC)
	if got := dayindex.Today(monday); got != "Mon" {
		t.Fatalf("expected Mon, got %q", got)
	}
	if got := dayindex.Today(monday.AddDate(0, 0, 6)); got != "Sun" {
		t.Fatalf("expected Sun, got %q", got)
	}
}

func TestStoreRoundTripAndMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "weekly_schedule.json")
	store := dayindex.NewStore(path, nil)

	empty, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file failed: %v", err)
	}
	if empty.Count() != 0 || len(empty) != 7 {
		t.Fatalf("expected empty full index, got %#v", empty)
	}

	if err := store.Save(dayindex.Build([]dayindex.Entry{{Day: "Wed", WorkID: 42}})); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be gone, stat err=%v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded["Wed"], []int64{42}) {
		t.Fatalf("unexpected Wed entries: %v", loaded["Wed"])
	}
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly_schedule.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := dayindex.NewStore(path, nil).Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestStoreSaveReplacesWithoutTempLeftovers(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := dayindex.NewStoreFs(fsys, "/data/weekly_schedule.json", nil)

	first := dayindex.New()
	first["Mon"] = []int64{1, 2}
	if err := store.Save(first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	second := dayindex.New()
	second["Sat"] = []int64{7}
	if err := store.Save(second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got["Mon"]) != 0 || len(got["Sat"]) != 1 || got["Sat"][0] != 7 {
		t.Fatalf("expected second index to replace the first, got %+v", got)
	}
	if exists, _ := afero.Exists(fsys, "/data/weekly_schedule.json.tmp"); exists {
		t.Fatal("temp file left behind")
	}
}
