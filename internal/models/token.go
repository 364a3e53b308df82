package models

// TokenPayload is the authenticated subject carried in a staff token.
type TokenPayload struct {
	Login string
}
