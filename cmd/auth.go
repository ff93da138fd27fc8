package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chorussync/chorus/internal/connectors"
	"github.com/chorussync/chorus/internal/server"
	"github.com/chorussync/chorus/internal/shared"
	"github.com/chorussync/chorus/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SpotifyAuth performs the OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens saved back to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	config := r.loadConfig(cmd)

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, configPath)
	}

	conn, err := connectors.NewSpotifyConnector(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify connector: %w", err)
	}

	token, err := r.doOAuth(config, conn)
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("%s", ui.OK("✓ Authorization successful"))
	r.writePlain("%s\n\n", ui.OK("✓ Tokens saved to "+configPath))
	r.writePlain("You can now use: chorus sync plays --service spotify\n")

	return nil
}

// AuthStatus reports which services have usable credentials.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	spotify := config.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		r.writePlain("%s\n", ui.Err("✗ Spotify: client credentials missing"))
	} else if spotify.AccessToken == "" {
		r.writePlain("%s\n", ui.Warn("⚠ Spotify: credentials set, not yet authorized (run 'chorus auth spotify')"))
	} else {
		r.writePlain("%s\n", ui.OK("✓ Spotify: authorized"))
	}

	lastfm := config.Credentials.Lastfm
	if lastfm.APIKey == "" || lastfm.Username == "" {
		r.writePlain("%s\n", ui.Err("✗ Last.fm: api_key or username missing"))
	} else {
		r.writePlain("%s\n", ui.OK("✓ Last.fm: configured for "+lastfm.Username))
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, conn *connectors.SpotifyConnector) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := conn.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(conn.OAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr, err := callbackAddr(config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// callbackAddr derives the loopback listen address from the redirect URI.
func callbackAddr(redirectURI string) (string, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, redirectURI)
	}
	return parsed.Host, nil
}
