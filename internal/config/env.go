package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Credentials is the opaque provider configuration the coordinator needs
// before it starts. The coordinator never inspects it beyond presence; the
// fields exist for the provider transport alone.
type Credentials struct {
	APIKey    string
	SenderID  string
	ProjectID string
}

// Environment keys the generator reads. A local .env file is loaded first at
// lower precedence: values already present in the process environment win.
const (
	EnvProviderKey       = "PUSHGATE_PROVIDER_KEY"
	EnvProviderSenderID  = "PUSHGATE_PROVIDER_SENDER_ID"
	EnvProviderProjectID = "PUSHGATE_PROVIDER_PROJECT_ID"
)

// LoadCredentials builds provider credentials from the environment.
// Missing required keys are a hard startup failure here, not downstream.
func LoadCredentials(envFile string) (*Credentials, error) {
	if strings.TrimSpace(envFile) != "" {
		// Load never overrides variables already set in the process
		// environment, which is exactly the precedence we want.
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	c := &Credentials{
		APIKey:    strings.TrimSpace(os.Getenv(EnvProviderKey)),
		SenderID:  strings.TrimSpace(os.Getenv(EnvProviderSenderID)),
		ProjectID: strings.TrimSpace(os.Getenv(EnvProviderProjectID)),
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("%s is required", EnvProviderKey)
	}
	if c.SenderID == "" {
		return nil, fmt.Errorf("%s is required", EnvProviderSenderID)
	}
	return c, nil
}
