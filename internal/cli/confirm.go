package cli

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"

	"github.com/JonMunkholm/querydesk/internal/workspace"
)

// promptConfirmer asks on the terminal. Aborting the prompt counts as no.
var promptConfirmer = workspace.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
})
