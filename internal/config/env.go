package config

import (
	"os"

	"github.com/joho/godotenv"
)

// APIKeyEnv is the environment variable holding the language model API key.
const APIKeyEnv = "OPENAI_API_KEY"

// LoadDotEnv loads variables from the given .env files, or from ./.env when
// none is given. Variables already set in the environment are kept.
// A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ResolveAPIKey returns the API key to use for narration.
// An explicit flag value wins over the environment looked up with getenv,
// which is usually os.Getenv.
func ResolveAPIKey(flagValue string, getenv func(string) string) string {
	if flagValue != "" {
		return flagValue
	}
	if getenv == nil {
		return ""
	}
	return getenv(APIKeyEnv)
}
