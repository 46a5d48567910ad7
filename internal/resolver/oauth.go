package resolver

import (
	"context"

	"golang.org/x/oauth2/clientcredentials"
)

// ArtifactRepoAuth configures a client-credentials OAuth2 flow for a
// private artifact repository proxy fronting the project's dependencies.
type ArtifactRepoAuth struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// fetchArtifactRepoToken exchanges client credentials for a bearer token
// and returns it as an environment variable pair the wrapped build tool
// invocation can read repository credentials from, the way Gradle/Maven
// both support an env-var-sourced credential for a custom repository.
func fetchArtifactRepoToken(ctx context.Context, auth *ArtifactRepoAuth) (map[string]string, error) {
	if auth == nil {
		return nil, nil
	}
	cfg := clientcredentials.Config{
		ClientID:     auth.ClientID,
		ClientSecret: auth.ClientSecret,
		TokenURL:     auth.TokenURL,
	}
	token, err := cfg.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"SIDECAR_ARTIFACT_REPO_TOKEN": token.AccessToken,
	}, nil
}
