package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-go/vocaiyze/pkg/core/conversation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.Context(), filepath.Join(t.TempDir(), "transcripts.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndMessages(t *testing.T) {
	s := openTestStore(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	msgs := []conversation.Message{
		{Speaker: conversation.SpeakerSelf, Text: "hola", Language: "Spanish", Timestamp: start},
		{Speaker: conversation.SpeakerOther, Text: "hello", Language: "English", Timestamp: start.Add(time.Second)},
	}
	for _, m := range msgs {
		if err := s.Record(t.Context(), "session-1", m); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := s.Messages(t.Context(), "session-1")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	for i := range msgs {
		if got[i].Speaker != msgs[i].Speaker || got[i].Text != msgs[i].Text || got[i].Language != msgs[i].Language {
			t.Fatalf("message %d = %#v, want %#v", i, got[i], msgs[i])
		}
		if !got[i].Timestamp.Equal(msgs[i].Timestamp) {
			t.Fatalf("message %d timestamp = %v, want %v", i, got[i].Timestamp, msgs[i].Timestamp)
		}
	}
}

func TestListSessions_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_ = s.Record(t.Context(), "old", conversation.Message{Text: "first", Language: "English", Timestamp: base})
	_ = s.Record(t.Context(), "new", conversation.Message{Text: "a", Language: "English", Timestamp: base.Add(time.Hour)})
	_ = s.Record(t.Context(), "new", conversation.Message{Speaker: conversation.SpeakerOther, Text: "b", Language: "English", Timestamp: base.Add(time.Hour + time.Second)})

	got, err := s.ListSessions(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("sessions = %#v", got)
	}
	if got[0].Messages != 2 || got[0].LastText != "b" {
		t.Fatalf("summary = %#v", got[0])
	}

	limited, err := s.ListSessions(t.Context(), 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("ListSessions(1) = %#v, %v", limited, err)
	}
}

func TestOpen_ReappliesMigrationsIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	s, err := Open(t.Context(), path, nil)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	_ = s.Record(t.Context(), "x", conversation.Message{Text: "kept", Timestamp: time.Now()})
	s.Close()

	s, err = Open(t.Context(), path, nil)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s.Close()
	got, _ := s.Messages(t.Context(), "x")
	if len(got) != 1 || got[0].Text != "kept" {
		t.Fatalf("messages = %#v", got)
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(t.Context(), " ", nil); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{postgres: true}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &Store{}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("rebind = %q", got)
	}
}
