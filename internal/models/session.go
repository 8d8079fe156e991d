package models

import "time"

// Session is the server-side state behind one browser's session cookie.
type Session struct {
	ID         string      `json:"id"`
	Username   string      `json:"username,omitempty"`
	Role       string      `json:"role,omitempty"`
	Submission *Submission `json:"submission,omitempty"`
	DocumentID string      `json:"documentId,omitempty"`
	ExpiresAt  time.Time   `json:"expiresAt"`
}

// Authenticated reports whether a user has logged in on this session.
func (s *Session) Authenticated() bool {
	return s != nil && s.Username != ""
}

func (s *Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}

// Clone returns a deep copy so stored sessions are never shared between requests.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Submission != nil {
		sub := *s.Submission
		sub.Data = make(FormSubmission, len(s.Submission.Data))
		for k, v := range s.Submission.Data {
			sub.Data[k] = v
		}
		c.Submission = &sub
	}
	return &c
}
