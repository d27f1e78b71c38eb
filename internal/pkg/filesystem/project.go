package filesystem

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/domain"
)

// RootEnvVar forces the project root, skipping discovery.
const RootEnvVar = "PROMPTKEEP_ROOT"

// FindProjectRoot walks up from start looking for a .promptkeep directory.
func FindProjectRoot(start string) (string, error) {
	if forced := os.Getenv(RootEnvVar); forced != "" {
		return ExpandPath(forced), nil
	}
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "resolve working directory")
		}
		start = wd
	}
	current, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrap(err, "resolve start directory")
	}
	for {
		info, err := os.Stat(filepath.Join(current, domain.ProjectDirName))
		if err == nil && info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", errors.WithHint(errors.WithStack(domain.ErrNoProject), "run 'promptkeep init' in your project directory")
		}
		current = parent
	}
}

// StateDir returns <root>/.promptkeep.
func StateDir(root string) string {
	return filepath.Join(root, domain.ProjectDirName)
}

// RequireProject fails with ErrNoProject when root has no state directory.
func RequireProject(root string) error {
	info, err := os.Stat(StateDir(root))
	if err == nil && info.IsDir() {
		return nil
	}
	return errors.WithHint(errors.Wrapf(domain.ErrNoProject, "in %s", root), "run 'promptkeep init' first")
}
