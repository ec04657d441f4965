package usecase

import (
	"context"
	"errors"

	"github.com/semmidev/vaultkeep/internal/domain"
)

type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Verify runs the full restore decode path and declines at the confirmation step,
// so nothing is returned or written.
type Verify struct {
	restore *Restore
}

func NewVerify(restore *Restore) *Verify {
	return &Verify{restore: restore}
}

func (uc *Verify) Execute(ctx context.Context, id string) VerifyResult {
	_, err := uc.restore.Execute(ctx, id, RestoreOptions{
		ConfirmRestore: func(domain.Artifact) bool { return false },
	})

	switch {
	case errors.Is(err, domain.ErrRestoreCancelled):
		return VerifyResult{Valid: true, Message: "Backup is valid and can be restored"}
	case err != nil:
		return VerifyResult{Valid: false, Message: err.Error()}
	}
	// unreachable while the confirmation always declines
	return VerifyResult{Valid: true, Message: "Backup is valid and can be restored"}
}
