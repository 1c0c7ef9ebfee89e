// Package model defines the repository listing data types shared by the
// transport client, the pagination state machine and the detail loader.
package model

// Owner is the account that owns a repository.
type Owner struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
}

// Repository is a single entry of the public repository listing.
// Its identity is ID; values are never mutated after decoding.
type Repository struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Owner Owner  `json:"owner"`
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner.Login + "/" + r.Name
}

// Page is the result of one listing fetch.
type Page struct {
	Repositories []Repository

	// Next resumes the listing after the last repository of this page.
	// A zero Next means this is the last page.
	Next Cursor
}

// HasNext reports whether another page can be requested.
func (p *Page) HasNext() bool {
	return p != nil && !p.Next.IsZero()
}
