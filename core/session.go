package core

// Session carries who is calling. It is built by the transport layer from a verified token
// and handed explicitly to every operation that checks authorization.
type Session struct {
	StudentID string
	IsAdmin   bool
}

func AdminSession() Session { return Session{IsAdmin: true} }

func StudentSession(id string) Session { return Session{StudentID: id} }

func (s Session) IsStudent() bool { return s.StudentID != "" }

// RequireAdmin fails with ErrForbidden unless the session belongs to an administrator.
func (s Session) RequireAdmin() error {
	if !s.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireStudent returns the authenticated student ID or ErrForbidden.
func (s Session) RequireStudent() (string, error) {
	if s.StudentID == "" {
		return "", ErrForbidden
	}
	return s.StudentID, nil
}
