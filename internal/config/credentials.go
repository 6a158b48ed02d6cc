package config

import (
	"fmt"

	"github.com/coopco/dodgem/internal/bump"
)

// FileCredentialStore keeps the login in the credentials section of the
// config file. DODGEM_EMAIL and DODGEM_PASSWORD take precedence when reading.
type FileCredentialStore struct {
	Path string
}

func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{Path: path}
}

// Credentials returns the stored login, or an error matching
// bump.ErrConfiguration when either field is missing.
func (s *FileCredentialStore) Credentials() (bump.Credentials, error) {
	cfg, err := LoadOrDefault(s.Path)
	if err != nil {
		return bump.Credentials{}, err
	}
	creds := bump.Credentials{Identity: cfg.Credentials.Email, Secret: cfg.Credentials.Password}
	if err := creds.Validate(); err != nil {
		return bump.Credentials{}, fmt.Errorf("no login stored in %s: %w", s.Path, err)
	}
	return creds, nil
}

// Save stores creds, keeping the rest of the file as it is.
func (s *FileCredentialStore) Save(creds bump.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	cfg, err := readFileRaw(s.Path)
	if err != nil {
		return err
	}
	cfg.Credentials = CredentialsConfig{Email: creds.Identity, Password: creds.Secret}
	return SaveToFile(cfg, s.Path)
}
