package domain

// Identity is who a gateway connection authenticated as.
type Identity struct {
	UserID      string
	DisplayName string
}
