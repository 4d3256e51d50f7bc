package configuration

import (
	"fmt"

	"github.com/joho/godotenv"
)

// GodotenvProvider is an implementation wrapping the Gotdotenv framework.
type GodotenvProvider struct{}

// Load reads generic Unix-type configuration files into the process
// environment. Variables that are already set are never overridden.
func (*GodotenvProvider) Load(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil {
		return fmt.Errorf("(config-godotenv) %w", err)
	}

	return nil
}
