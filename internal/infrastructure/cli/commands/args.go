package commands

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/domain"
)

// parsePositive parses a prompt id or version number argument.
func parsePositive(kind, arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n <= 0 {
		return 0, domain.InvalidInputf("%s must be a positive integer, got %q", kind, arg)
	}
	return n, nil
}

func parseID(arg string) (int, error) {
	return parsePositive("prompt id", arg)
}

func parseVersion(arg string) (int, error) {
	return parsePositive("version", arg)
}

// readTemplate returns the inline template or reads it from path ("-" is stdin).
func readTemplate(inline, path string, stdin io.Reader) (string, bool, error) {
	if path == "" {
		return inline, inline != "", nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "read template %s", path)
	}
	return string(data), true, nil
}

// readVarsFile loads template variables from a JSON object file and lays the
// --var pairs over it.
func readVarsFile(path string, pairs map[string]interface{}) (map[string]interface{}, error) {
	if path == "" {
		return pairs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFoundf("vars file %s", path)
		}
		return nil, errors.Wrapf(err, "read vars file %s", path)
	}
	vars := map[string]interface{}{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, domain.InvalidInputf("vars file %s is not a JSON object: %v", path, err)
	}
	for k, v := range pairs {
		vars[k] = v
	}
	return vars, nil
}
