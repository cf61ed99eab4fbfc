package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/habitflow/internal/store"
)

// fakeClient 是测试用的内存文档存储，支持注入错误
type fakeClient struct {
	docs      []store.Document
	insertErr error
	listErr   error
	patchErr  error
	removeErr error

	patches  []store.Patch
	released int
}

func (f *fakeClient) Insert(ownerID string, doc store.Document) (store.Document, error) {
	if f.insertErr != nil {
		return store.Document{}, f.insertErr
	}
	doc.ID = "doc-1"
	doc.OwnerID = ownerID
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	f.docs = append([]store.Document{doc}, f.docs...)
	return doc, nil
}

func (f *fakeClient) Get(ownerID, id string) (store.Document, error) {
	for _, doc := range f.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return store.Document{}, &store.Error{Code: store.CodeNotFound, Message: "missing"}
}

func (f *fakeClient) List(ownerID string) ([]store.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	docs := make([]store.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (f *fakeClient) Patch(ownerID, id string, patch store.Patch) error {
	if f.patchErr != nil {
		return f.patchErr
	}
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeClient) Remove(ownerID, id string) error {
	return f.removeErr
}

func (f *fakeClient) Subscribe(ownerID string, fn store.SnapshotFunc) func() {
	fn(append([]store.Document(nil), f.docs...))
	return func() { f.released++ }
}

func TestCreateValidatesInput(t *testing.T) {
	repo := NewHabitRepository(&fakeClient{})

	_, err := repo.Create("u1", HabitInput{Title: "   ", Frequency: "daily"})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}

	_, err = repo.Create("u1", HabitInput{Title: "晨跑", Frequency: "yearly"})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for bad frequency, got %v", err)
	}
}

func TestCreateNormalizesAndMaps(t *testing.T) {
	client := &fakeClient{}
	repo := NewHabitRepository(client)

	habit, err := repo.Create("u1", HabitInput{
		Title:       "  晨跑  ",
		Description: " 每天 5 公里 ",
		Frequency:   " Daily ",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if habit.ID == "" {
		t.Fatal("expected store-assigned id")
	}
	if habit.Title != "晨跑" {
		t.Fatalf("title not trimmed: %q", habit.Title)
	}
	if habit.Frequency != "daily" {
		t.Fatalf("frequency not normalized: %q", habit.Frequency)
	}
	if habit.CompletedDates == nil || len(habit.CompletedDates) != 0 {
		t.Fatalf("expected empty completed dates, got %v", habit.CompletedDates)
	}
	if habit.CreatedAt.IsZero() || habit.UpdatedAt.IsZero() {
		t.Fatal("expected approximated timestamps")
	}
}

func TestCreateMapsKnownStoreCode(t *testing.T) {
	client := &fakeClient{insertErr: &store.Error{Code: store.CodeUnavailable, Message: "raw"}}
	repo := NewHabitRepository(client)

	_, err := repo.Create("u1", HabitInput{Title: "晨跑", Frequency: "daily"})
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Code != store.CodeUnavailable {
		t.Fatalf("unexpected code: %s", storeErr.Code)
	}
	if storeErr.Message != "failed to create habit: the service is temporarily unavailable" {
		t.Fatalf("unexpected message: %q", storeErr.Message)
	}
}

func TestMapStoreErrorFallbacks(t *testing.T) {
	// 未识别的错误码回退到原始信息
	err := mapStoreError("failed to update habit", &store.Error{Code: "weird-code", Message: "socket reset"})
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Message != "failed to update habit: socket reset" {
		t.Fatalf("unexpected message: %q", storeErr.Message)
	}

	// 原始信息为空时使用通用兜底文案
	err = mapStoreError("failed to update habit", &store.Error{Code: "weird-code"})
	errors.As(err, &storeErr)
	if storeErr.Message != "failed to update habit: something went wrong, please try again" {
		t.Fatalf("unexpected message: %q", storeErr.Message)
	}

	// 非存储错误包装为 internal
	err = mapStoreError("failed to delete habit", errors.New("boom"))
	errors.As(err, &storeErr)
	if storeErr.Code != store.CodeInternal {
		t.Fatalf("unexpected code: %s", storeErr.Code)
	}
}

func TestUpdateValidatesPatch(t *testing.T) {
	client := &fakeClient{}
	repo := NewHabitRepository(client)

	empty := "  "
	err := repo.Update("u1", "doc-1", HabitPatch{Title: &empty})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	frequency := "Weekly"
	if err := repo.Update("u1", "doc-1", HabitPatch{Frequency: &frequency}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if len(client.patches) != 1 || client.patches[0].Frequency == nil || *client.patches[0].Frequency != "weekly" {
		t.Fatalf("frequency not normalized in patch: %+v", client.patches)
	}
	// 未提供的字段不出现在底层 patch 中
	if client.patches[0].Title != nil || client.patches[0].CompletedDates != nil {
		t.Fatal("unset fields must stay nil")
	}
}

func TestListConvertsDocuments(t *testing.T) {
	client := &fakeClient{docs: []store.Document{{
		ID:        "doc-1",
		OwnerID:   "u1",
		Title:     "阅读",
		Frequency: "weekly",
	}}}
	repo := NewHabitRepository(client)

	habits, err := repo.List("u1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("expected 1 habit, got %d", len(habits))
	}
	if habits[0].CompletedDates == nil {
		t.Fatal("completed dates must never be nil")
	}

	empty, err := repo.List("nobody")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty slice, got %v", empty)
	}
}

func TestWatchConvertsAndReleases(t *testing.T) {
	client := &fakeClient{docs: []store.Document{{ID: "doc-1", OwnerID: "u1", Title: "写作", Frequency: "daily"}}}
	repo := NewHabitRepository(client)

	var got []Habit
	release := repo.Watch("u1", func(habits []Habit) {
		got = habits
	})

	if len(got) != 1 || got[0].Title != "写作" {
		t.Fatalf("unexpected initial snapshot: %+v", got)
	}

	release()
	if client.released != 1 {
		t.Fatalf("expected release to propagate, got %d", client.released)
	}
}

func TestIsValidDate(t *testing.T) {
	if !IsValidDate("2024-01-01") {
		t.Fatal("expected valid date")
	}
	for _, bad := range []string{"2024-13-01", "01-01-2024", "2024-01-32", "today", ""} {
		if IsValidDate(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestListConvertsDocumentsEmptyClient(t *testing.T) {
	client := &fakeClient{listErr: &store.Error{Code: store.CodeResourceExhausted, Message: "quota"}}
	repo := NewHabitRepository(client)

	_, err := repo.List("u1")
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if storeErr.Message != "failed to load habits: too many requests, please try again later" {
		t.Fatalf("unexpected message: %q", storeErr.Message)
	}
}
