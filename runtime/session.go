package runtime

import (
	"codeshare/contract"
	"codeshare/domain"
	"codeshare/permission"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

type member struct {
	participant domain.Participant
	sink        contract.EventSink
}

// Recipient is a participant together with the sink its events go to.
type Recipient struct {
	Participant domain.Participant
	Sink        contract.EventSink
}

// Session is the authoritative in-memory record of one live session.
// Its state is only changed through the Registry.
type Session struct {
	mu        sync.RWMutex
	id        domain.SessionID
	content   string
	language  string
	locked    bool
	revision  uint64
	createdAt time.Time
	roles     *permission.RoleTable
	members   map[string]*member
	idle      *time.Timer
	idleAt    time.Time
}

func newSession(id domain.SessionID, language, content string, visibility domain.Visibility, createdAt time.Time) *Session {
	return &Session{
		id:        id,
		content:   content,
		language:  language,
		createdAt: createdAt,
		roles:     permission.NewRoleTable(visibility),
		members:   make(map[string]*member),
	}
}

func (s *Session) ID() domain.SessionID { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) Content() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

func (s *Session) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

func (s *Session) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

func (s *Session) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Session) Visibility() domain.Visibility {
	return s.roles.Visibility()
}

func (s *Session) Owner() string {
	return s.roles.Owner()
}

// Roles exposes the role table for reading. Mutations go through the Registry.
func (s *Session) Roles() *permission.RoleTable {
	return s.roles
}

// Roster returns the connected participants ordered by arrival.
func (s *Session) Roster() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rosterLocked()
}

func (s *Session) rosterLocked() []domain.Participant {
	roster := lo.MapToSlice(s.members, func(_ string, m *member) domain.Participant {
		return s.withRole(m.participant)
	})
	slices.SortFunc(roster, func(a, b domain.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ConnectionID, b.ConnectionID)
	})
	return roster
}

// withRole stamps the role currently held in the table, so role changes
// never need to be copied into the roster.
func (s *Session) withRole(p domain.Participant) domain.Participant {
	if role, ok := s.roles.Role(p.UserID); ok {
		p.Role = role
	}
	return p
}
