package domain

// Session identifies the authenticated owner of a request. It is passed
// explicitly to every snapshot operation.
type Session struct {
	UserID string
	Email  string
}

// Valid reports whether the session establishes an owner.
func (s *Session) Valid() bool {
	return s != nil && s.UserID != ""
}

// OwnerFromSession returns the owner ID or ErrAccessDenied.
func OwnerFromSession(s *Session) (string, error) {
	if !s.Valid() {
		return "", ErrAccessDenied
	}
	return s.UserID, nil
}
