package memory

import (
	"context"
	"errors"
	"fmt"
	"imageshare-web/core"
	"sync"
	"testing"
	"time"
)

func TestNewShareStore(t *testing.T) {
	store := NewShareStore()
	if store == nil {
		t.Fatal("NewShareStore() returned nil")
	}
}

func TestSaveShare_Success(t *testing.T) {
	store := NewShareStore()
	ctx := context.Background()

	record := &core.ShareRecord{ImageID: "42", Owner: "u1", Token: "abc123"}
	id, err := store.SaveShare(ctx, record)
	if err != nil {
		t.Fatalf("SaveShare() failed: %v", err)
	}

	// ULIDs are 26 characters
	if len(id) != 26 {
		t.Errorf("SaveShare() returned invalid ID length: got %d, want 26", len(id))
	}
	if record.CreatedAt.IsZero() {
		t.Error("SaveShare() did not stamp CreatedAt")
	}

	found, err := store.FindShare(ctx, "42")
	if err != nil {
		t.Fatalf("FindShare() failed: %v", err)
	}
	if found.Token != "abc123" || found.ID != id {
		t.Errorf("FindShare() = %+v", found)
	}
}

func TestSaveShare_UpsertKeepsID(t *testing.T) {
	store := NewShareStore()
	ctx := context.Background()

	first, _ := store.SaveShare(ctx, &core.ShareRecord{ImageID: "42", Token: "old"})
	second, err := store.SaveShare(ctx, &core.ShareRecord{ImageID: "42", Token: "new"})
	if err != nil {
		t.Fatalf("SaveShare() failed: %v", err)
	}
	if first != second {
		t.Errorf("upsert changed ID: %s -> %s", first, second)
	}

	found, _ := store.FindShare(ctx, "42")
	if found.Token != "new" {
		t.Errorf("Token = %q, want new", found.Token)
	}
}

func TestSaveShare_MissingImageID(t *testing.T) {
	store := NewShareStore()
	_, err := store.SaveShare(context.Background(), &core.ShareRecord{})
	if !errors.Is(err, core.ErrMissingID) {
		t.Errorf("error = %v, want ErrMissingID", err)
	}
}

func TestFindShare_NotFound(t *testing.T) {
	store := NewShareStore()
	_, err := store.FindShare(context.Background(), "nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteShare(t *testing.T) {
	store := NewShareStore()
	ctx := context.Background()
	store.SaveShare(ctx, &core.ShareRecord{ImageID: "42"})

	if err := store.DeleteShare(ctx, "42"); err != nil {
		t.Fatalf("DeleteShare() failed: %v", err)
	}
	if _, err := store.FindShare(ctx, "42"); !errors.Is(err, core.ErrNotFound) {
		t.Error("record still present after delete")
	}
	if err := store.DeleteShare(ctx, "42"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestListShares_FilterAndOrder(t *testing.T) {
	store := NewShareStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.SaveShare(ctx, &core.ShareRecord{ImageID: "a", Owner: "u1", CreatedAt: base})
	store.SaveShare(ctx, &core.ShareRecord{ImageID: "b", Owner: "u1", CreatedAt: base.Add(time.Hour)})
	store.SaveShare(ctx, &core.ShareRecord{ImageID: "c", Owner: "u2", CreatedAt: base.Add(2 * time.Hour)})

	records, err := store.ListShares(ctx, "u1")
	if err != nil {
		t.Fatalf("ListShares() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListShares() returned %d records, want 2", len(records))
	}
	if records[0].ImageID != "b" || records[1].ImageID != "a" {
		t.Errorf("unexpected order: %s, %s", records[0].ImageID, records[1].ImageID)
	}

	empty, err := store.ListShares(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ListShares(nobody) = %v, %v; want empty non-nil slice", empty, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewShareStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			imageID := fmt.Sprintf("img-%d", i)
			if _, err := store.SaveShare(ctx, &core.ShareRecord{ImageID: imageID, Owner: "u"}); err != nil {
				t.Errorf("SaveShare() failed: %v", err)
			}
			if _, err := store.FindShare(ctx, imageID); err != nil {
				t.Errorf("FindShare() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	records, _ := store.ListShares(ctx, "u")
	if len(records) != 50 {
		t.Errorf("ListShares() returned %d records, want 50", len(records))
	}
}
