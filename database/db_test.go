package database

import (
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetUser(t *testing.T) {
	db := newTestDB(t)

	if err := db.CreateUser(42, "Alice"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user, err := db.GetUser(42)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user == nil || user.Name != "Alice" || user.ID != 42 {
		t.Errorf("GetUser = %+v, want Alice/42", user)
	}
	if user.RegisteredAt.IsZero() {
		t.Error("RegisteredAt not set")
	}
}

func TestGetUserMissing(t *testing.T) {
	db := newTestDB(t)

	user, err := db.GetUser(7)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user != nil {
		t.Errorf("GetUser for unknown id = %+v, want nil", user)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	db := newTestDB(t)

	if err := db.CreateUser(1, "Alice"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := db.CreateUser(1, "Bob"); err == nil {
		t.Error("expected primary key violation for duplicate user")
	}
}

func TestListUsers(t *testing.T) {
	db := newTestDB(t)

	for id, name := range map[int64]string{1: "Alice", 2: "Bob"} {
		if err := db.CreateUser(id, name); err != nil {
			t.Fatalf("CreateUser(%d): %v", id, err)
		}
	}

	users, err := db.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0].ID != 1 || users[1].ID != 2 {
		t.Errorf("ListUsers = %+v, want ids [1 2]", users)
	}
}

func TestAppendAndFetchRecent(t *testing.T) {
	db := newTestDB(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := db.AppendResult(1, 4.0+float64(i), 4.0, 4.0)
		if err != nil {
			t.Fatalf("AppendResult: %v", err)
		}
		ids = append(ids, id)
	}
	if _, err := db.AppendResult(2, 1.0, 1.0, 1.0); err != nil {
		t.Fatalf("AppendResult other user: %v", err)
	}

	results, err := db.FetchRecent(1, 5)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("FetchRecent returned %d rows, want 3", len(results))
	}
	// Newest first.
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if results[i].ID != want {
			t.Errorf("results[%d].ID = %s, want %s", i, results[i].ID, want)
		}
	}

	// Repeatable with no intervening writes.
	again, err := db.FetchRecent(1, 5)
	if err != nil {
		t.Fatalf("FetchRecent again: %v", err)
	}
	for i := range results {
		if again[i].ID != results[i].ID {
			t.Errorf("ordering unstable at %d: %s vs %s", i, again[i].ID, results[i].ID)
		}
	}

	limited, err := db.FetchRecent(1, 2)
	if err != nil {
		t.Fatalf("FetchRecent limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != ids[2] {
		t.Errorf("FetchRecent(1, 2) = %d rows starting %s, want 2 starting %s", len(limited), limited[0].ID, ids[2])
	}
}

func TestAttachAnalysisTargetsNewestNullRow(t *testing.T) {
	db := newTestDB(t)

	first, err := db.AppendResult(1, 3.0, 3.0, 3.0)
	if err != nil {
		t.Fatalf("AppendResult: %v", err)
	}
	second, err := db.AppendResult(1, 5.0, 5.0, 5.0)
	if err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	if err := db.AttachAnalysis(1, "latest looks fine"); err != nil {
		t.Fatalf("AttachAnalysis: %v", err)
	}

	results, err := db.FetchRecent(1, 5)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	byID := make(map[string]*string)
	for _, r := range results {
		byID[r.ID] = r.Analysis
	}
	if byID[second] == nil || *byID[second] != "latest looks fine" {
		t.Errorf("newest row analysis = %v, want set", byID[second])
	}
	if byID[first] != nil {
		t.Errorf("older row analysis = %q, want nil", *byID[first])
	}

	// Second attach lands on the remaining null row.
	if err := db.AttachAnalysis(1, "older one"); err != nil {
		t.Fatalf("AttachAnalysis second: %v", err)
	}
	results, err = db.FetchRecent(1, 5)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	for _, r := range results {
		if r.ID == first && (r.Analysis == nil || *r.Analysis != "older one") {
			t.Errorf("older row analysis = %v, want 'older one'", r.Analysis)
		}
	}
}

func TestAttachAnalysisNoMatchIsNoop(t *testing.T) {
	db := newTestDB(t)

	if err := db.AttachAnalysis(99, "nothing to attach to"); err != nil {
		t.Errorf("AttachAnalysis with no rows: %v", err)
	}
}

func TestLatestResultAt(t *testing.T) {
	db := newTestDB(t)

	if _, ok, err := db.LatestResultAt(1); err != nil || ok {
		t.Fatalf("LatestResultAt before any result: ok=%v err=%v", ok, err)
	}

	if _, err := db.AppendResult(1, 4.0, 4.0, 4.0); err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	at, ok, err := db.LatestResultAt(1)
	if err != nil || !ok {
		t.Fatalf("LatestResultAt after result: ok=%v err=%v", ok, err)
	}
	if at.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestSaveFeedback(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveFeedback(1, "love the bot"); err != nil {
		t.Fatalf("SaveFeedback: %v", err)
	}
	if err := db.SaveFeedback(1, "still do"); err != nil {
		t.Fatalf("SaveFeedback: %v", err)
	}

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM feedback WHERE user_id = 1").Scan(&count); err != nil {
		t.Fatalf("count feedback: %v", err)
	}
	if count != 2 {
		t.Errorf("feedback rows = %d, want 2", count)
	}
}
