package domain

import "time"

// SessionClaims is the identity payload carried by a signed session
// credential. A credential proves who the subject is; current role and
// name are re-read from the directory on every resolution.
type SessionClaims struct {
	SubjectID string
	Email     string
	Name      string
	Role      Role
}

// Session is a verified credential plus its embedded timestamps.
type Session struct {
	SessionClaims
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session has passed its expiry at the given time.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
