package config

// NewRepositoryConfig creates a Repository config for testing purposes
func NewRepositoryConfig(backend, projectID, databaseID string) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		databaseID: databaseID,
	}
}

// NewGoogleConfig creates a Google config for testing purposes
func NewGoogleConfig(clientID, clientSecret string) *Google {
	return &Google{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}
