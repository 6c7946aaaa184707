package models

// User is the session-scoped identity the storefront passes in when a
// checkout starts. It replaces the old ambient local-storage read.
type User struct {
	ID    string `json:"userId"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
