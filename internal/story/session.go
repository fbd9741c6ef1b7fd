package story

import (
	"time"

	"github.com/google/uuid"
)

// Credentials are the keys for the two endpoints. ClassifierKey may be empty,
// in which case generated text is never screened.
type Credentials struct {
	CompletionKey string
	ClassifierKey string
}

// Session is the single active story plus the keys used to generate it.
// It is passed explicitly into every stage; nothing is looked up globally.
type Session struct {
	ID          string
	Credentials Credentials
	Story       *StoryState
	CreatedAt   time.Time
}

// NewSession starts a session for a storyline.
func NewSession(creds Credentials, storyline string) *Session {
	return &Session{
		ID:          uuid.New().String(),
		Credentials: creds,
		Story:       NewStoryState(storyline),
		CreatedAt:   time.Now(),
	}
}

// ShortID is the first eight characters of the session id.
func (s *Session) ShortID() string {
	if len(s.ID) < 8 {
		return s.ID
	}
	return s.ID[:8]
}
