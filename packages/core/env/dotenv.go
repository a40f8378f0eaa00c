package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv parses a .env file and returns key-value pairs without touching
// the process environment.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read env file %s: %w", path, err)
	}
	return vars, nil
}

// LoadDotEnvBeside loads the .env file sitting next to requestFile, if there
// is one. A missing file is not an error.
func LoadDotEnvBeside(requestFile string) (map[string]string, error) {
	path := filepath.Join(filepath.Dir(requestFile), ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return LoadDotEnv(path)
}
