package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/vampirenirmal/dramaturg/internal/story"
)

const (
	sessionsDir  = "sessions"
	sessionFile  = "session.json"
	scriptFile   = "script.txt"
	metadataFile = "README.md"
)

// ErrNoSession is returned when a session directory holds no session file.
var ErrNoSession = errors.New("no saved session")

// Naming decides how session directories are named.
type Naming int

const (
	// NamingUUID uses the full session id.
	NamingUUID Naming = iota
	// NamingTimestamp uses the creation time and the short id.
	NamingTimestamp
	// NamingDescriptive adds a slug of the storyline.
	NamingDescriptive
)

// ParseNaming maps a config value onto a Naming. Unknown values fall back to
// NamingUUID.
func ParseNaming(s string) Naming {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timestamp":
		return NamingTimestamp
	case "descriptive":
		return NamingDescriptive
	default:
		return NamingUUID
	}
}

// SessionDir is the directory of a session, relative to the store.
func SessionDir(sess *story.Session, naming Naming) string {
	stamp := sess.CreatedAt.Format("2006-01-02_1504")
	switch naming {
	case NamingTimestamp:
		return path.Join(sessionsDir, stamp+"_"+sess.ShortID())
	case NamingDescriptive:
		return path.Join(sessionsDir, stamp+"_"+slug(sess.Story.Storyline, 30)+"_"+sess.ShortID())
	default:
		return path.Join(sessionsDir, sess.ID)
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string, maxLen int) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	if s == "" {
		return "script"
	}
	return s
}

// savedSession is what goes to disk. Credentials are never written.
type savedSession struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Story     *story.StoryState `json:"story"`
}

// Sessions saves sessions and their rendered scripts through a Store.
type Sessions struct {
	store  Store
	naming Naming
	logger *slog.Logger
}

type SessionsOption func(*Sessions)

func WithNaming(n Naming) SessionsOption {
	return func(s *Sessions) {
		s.naming = n
	}
}

func WithLogger(logger *slog.Logger) SessionsOption {
	return func(s *Sessions) {
		s.logger = logger.With("component", "sessions")
	}
}

func NewSessions(store Store, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		store:  store,
		logger: slog.Default().With("component", "sessions"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the session state and returns its directory.
func (s *Sessions) Save(ctx context.Context, sess *story.Session) (string, error) {
	dir := SessionDir(sess, s.naming)
	data, err := json.MarshalIndent(savedSession{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: time.Now(),
		Story:     sess.Story,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	if err := s.store.Save(ctx, path.Join(dir, sessionFile), data); err != nil {
		return "", fmt.Errorf("saving session %s: %w", sess.ShortID(), err)
	}
	s.logger.Debug("session saved", "session_id", sess.ShortID(), "dir", dir)
	return dir, nil
}

// Load restores a saved session from its directory. The credentials are
// supplied by the caller since they are never stored.
func (s *Sessions) Load(ctx context.Context, dir string, creds story.Credentials) (*story.Session, error) {
	data, err := s.store.Load(ctx, path.Join(dir, sessionFile))
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %w", ErrNoSession, dir, err)
	}

	var saved savedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("decoding session in %s: %w", dir, err)
	}
	if saved.Story == nil || saved.ID == "" {
		return nil, fmt.Errorf("%w in %s: incomplete session file", ErrNoSession, dir)
	}
	if saved.Story.Dialogue == nil {
		saved.Story.Dialogue = make(map[int]string)
	}

	return &story.Session{
		ID:          saved.ID,
		Credentials: creds,
		Story:       saved.Story,
		CreatedAt:   saved.CreatedAt,
	}, nil
}

// List returns the saved session directories.
func (s *Sessions) List(ctx context.Context) ([]string, error) {
	files, err := s.store.List(ctx, path.Join(sessionsDir, "*", sessionFile))
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(files))
	for _, f := range files {
		dirs = append(dirs, path.Dir(f))
	}
	return dirs, nil
}

// Export saves the session together with its rendered script and a short
// metadata note, and returns the directory they were written to.
func (s *Sessions) Export(ctx context.Context, sess *story.Session, script string) (string, error) {
	dir, err := s.Save(ctx, sess)
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, path.Join(dir, scriptFile), []byte(script)); err != nil {
		return "", fmt.Errorf("saving script: %w", err)
	}
	if err := s.store.Save(ctx, path.Join(dir, metadataFile), metadata(sess)); err != nil {
		return "", fmt.Errorf("saving metadata: %w", err)
	}
	s.logger.Info("script exported",
		"session_id", sess.ShortID(),
		"dir", dir,
		"scenes", len(sess.Story.Scenes),
		"script_length", len(script))
	return dir, nil
}

func metadata(sess *story.Session) []byte {
	title := sess.Story.Title
	if title == "" {
		title = "(untitled)"
	}
	return []byte(fmt.Sprintf(`# %s

**Session ID**: %s
**Created**: %s
**Scenes**: %d
**Places**: %d

## Storyline

%s
`, title, sess.ID, sess.CreatedAt.Format("2006-01-02 15:04:05"),
		len(sess.Story.Scenes), len(sess.Story.Places), sess.Story.Storyline))
}
