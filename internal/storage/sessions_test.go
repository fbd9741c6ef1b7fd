package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vampirenirmal/dramaturg/internal/story"
)

func testSession() *story.Session {
	sess := story.NewSession(story.Credentials{CompletionKey: "sk-secret", ClassifierKey: "pk-secret"},
		"Jerry falls in love with Lydia, a bartender.")
	sess.ID = "82f06b15-0000-4000-8000-000000000000"
	sess.CreatedAt = time.Date(2025, 7, 16, 15, 30, 0, 0, time.UTC)
	return sess
}

func TestSessionDir(t *testing.T) {
	sess := testSession()

	tests := []struct {
		name   string
		naming Naming
		title  string
		want   string
	}{
		{"uuid", NamingUUID, "", "sessions/82f06b15-0000-4000-8000-000000000000"},
		{"timestamp", NamingTimestamp, "", "sessions/2025-07-16_1530_82f06b15"},
		{"descriptive", NamingDescriptive, "", "sessions/2025-07-16_1530_jerry-falls-in-love-with-lydia_82f06b15"},
		{"descriptive ignores the title", NamingDescriptive, "Last Orders!", "sessions/2025-07-16_1530_jerry-falls-in-love-with-lydia_82f06b15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess.Story.Title = tt.title
			if got := SessionDir(sess, tt.naming); got != tt.want {
				t.Errorf("SessionDir = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseNaming(t *testing.T) {
	tests := map[string]Naming{
		"":            NamingUUID,
		"uuid":        NamingUUID,
		"Timestamp":   NamingTimestamp,
		"descriptive": NamingDescriptive,
		"bogus":       NamingUUID,
	}
	for in, want := range tests {
		if got := ParseNaming(in); got != want {
			t.Errorf("ParseNaming(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileSystem(t.TempDir())
	sessions := NewSessions(store, WithNaming(NamingTimestamp))

	sess := testSession()
	sess.Story.Title = "Last Orders"
	sess.Story.Scenes = []story.SceneDescriptor{{PlaceName: "The Pub.", PlotElement: "Beginning.", Beat: "Lydia pours."}}
	sess.Story.SetDialogue(1, "LYDIA\nAnother?")

	dir, err := sessions.Export(ctx, sess, "Title: Last Orders\n")
	if err != nil {
		t.Fatal(err)
	}

	raw, err := store.Load(ctx, dir+"/session.json")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Error("credentials written to disk")
	}

	script, err := store.Load(ctx, dir+"/script.txt")
	if err != nil || string(script) != "Title: Last Orders\n" {
		t.Errorf("script = %q, %v", script, err)
	}
	note, err := store.Load(ctx, dir+"/README.md")
	if err != nil || !strings.HasPrefix(string(note), "# Last Orders") {
		t.Errorf("metadata = %q, %v", note, err)
	}

	creds := story.Credentials{CompletionKey: "sk-other"}
	loaded, err := sessions.Load(ctx, dir, creds)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != sess.ID || loaded.Credentials != creds {
		t.Errorf("loaded session = %+v", loaded)
	}
	if loaded.Story.Dialogue[1] != "LYDIA\nAnother?" || loaded.Story.Scenes[0].Beat != "Lydia pours." {
		t.Errorf("loaded story = %+v", loaded.Story)
	}

	dirs, err := sessions.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 || dirs[0] != dir {
		t.Errorf("List = %v, want [%s]", dirs, dir)
	}
}

func TestLoadMissingSession(t *testing.T) {
	sessions := NewSessions(NewFileSystem(t.TempDir()))
	_, err := sessions.Load(context.Background(), "sessions/nope", story.Credentials{})
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}
