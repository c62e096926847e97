package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"metals-dashboard/internal/chat"
)

// ErrNotFound is returned by store lookups for unknown sessions.
var ErrNotFound = errors.New("session: not found")

// Page is the dashboard view a session is on.
type Page string

const (
	PageMain Page = "main"
	PageCity Page = "city"
)

// Session is the per-user dashboard context. Conversation is what the
// completion service sees; Transcript is what the user sees, including
// advisory and apology lines.
type Session struct {
	ID           string         `json:"id"`
	Page         Page           `json:"page"`
	Conversation []chat.Message `json:"conversation"`
	Transcript   []chat.Message `json:"transcript"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// New starts a session on the main page.
func New(id string) *Session {
	if id == "" {
		id = NewID()
	}
	return &Session{ID: id, Page: PageMain}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GoToCity moves the session to the city selector.
func (s *Session) GoToCity() {
	s.Page = PageCity
}

// GoBack returns the session to the main dashboard.
func (s *Session) GoBack() {
	s.Page = PageMain
}

// Record applies a conversation turn: the transcript always gains the
// question and the shown text; the conversation only changes on success.
func (s *Session) Record(question string, res chat.Result) {
	s.Transcript = append(s.Transcript,
		chat.Message{Role: chat.RoleUser, Content: question},
		chat.Message{Role: chat.RoleAssistant, Content: res.Text()},
	)
	if !res.Failed() {
		s.Conversation = res.History
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Conversation = append([]chat.Message(nil), s.Conversation...)
	c.Transcript = append([]chat.Message(nil), s.Transcript...)
	return &c
}

// Store persists sessions between requests.
type Store interface {
	// Load returns the session for id, creating it on first use.
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
