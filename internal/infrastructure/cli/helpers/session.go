package helpers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/promptkeep/internal/app"
)

// Session builds the container on first use so commands like init can run
// before a project exists.
type Session struct {
	Options   app.Options
	AssumeYes bool

	container *app.Container
}

// NewSession returns a session for the given container options.
func NewSession(opts app.Options) *Session {
	return &Session{Options: opts}
}

// Container returns the project container, building it on first call.
func (s *Session) Container(ctx context.Context) (*app.Container, error) {
	if s.container != nil {
		return s.container, nil
	}
	c, err := app.BuildContainer(ctx, s.Options)
	if err != nil {
		return nil, err
	}
	s.container = c
	return c, nil
}

// Close releases the container if one was built.
func (s *Session) Close() error {
	if s.container == nil {
		return nil
	}
	err := s.container.Close()
	s.container = nil
	return err
}

// Confirm asks question on the command's streams unless --yes was given.
func (s *Session) Confirm(cmd *cobra.Command, question string) bool {
	if s.AssumeYes {
		return true
	}
	return AskYesNo(cmd.OutOrStdout(), cmd.InOrStdin(), question, false)
}
