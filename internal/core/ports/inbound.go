package ports

import (
	"context"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

// UploadController drives one submission attempt at a time.
type UploadController interface {
	Select(file domain.UploadFile) error
	Submit(ctx context.Context) error
	Begin(file domain.UploadFile) (run func(ctx context.Context) error, err error)
	ConfirmOverwrite(ctx context.Context) error
	CancelOverwrite() error
	Snapshot() domain.UploadSnapshot
	Subscribe(fn func(domain.UploadSnapshot)) (unsubscribe func())
}

// SessionController owns tabs, the listing cache, the active view and dialogs.
type SessionController interface {
	State() domain.SessionState
	OpenTab(record domain.DocumentRecord) error
	OpenListed(id domain.DocumentID) error
	CloseTab(id domain.DocumentID)
	ShowUpload()
	ShowDocument(id domain.DocumentID) error
	ShowListing(ctx context.Context) error
	Search(ctx context.Context, query string) error
	ClearSearch(ctx context.Context) error
	DeleteDocument(ctx context.Context, id domain.DocumentID) error
	RequestDelete(id domain.DocumentID) error
	ConfirmDelete(ctx context.Context) error
	CancelDelete() error
}
