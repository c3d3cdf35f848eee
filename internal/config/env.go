package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from the given dotenv files into the process
// environment. Missing files are skipped and variables that are already set
// are not overridden.
func LoadEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("can't load %s: %w", file, err)
		}
	}

	return nil
}
