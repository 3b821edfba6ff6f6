// Command oauth-init runs the one-time interactive OAuth consent flow
// and writes the resulting token file that talous and talous-worker
// load at startup.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	gsheets "google.golang.org/api/sheets/v4"

	"talous/internal/config"
	"talous/internal/googleauth"
	"talous/internal/log"
)

const consentTimeout = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	logger := log.New(slog.LevelInfo, "oauth-init")
	log.SetDefault(logger)

	cfg := config.Load()
	if err := run(cfg, logger); err != nil {
		logger.Error("OAuth initialization failed", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	creds := googleauth.Credentials{
		ClientFile: cfg.GoogleOAuthClientFile,
		ClientJSON: cfg.GoogleOAuthClientJSON,
	}
	// Sheets for the tabular store, Drive read-only for receipt listing.
	oauthCfg, err := googleauth.OAuthConfig(creds,
		gsheets.SpreadsheetsScope, gdrive.DriveReadonlyScope)
	if err != nil {
		return err
	}

	port := os.Getenv("OAUTH_REDIRECT_PORT")
	if port == "" {
		port = "8085"
	}
	// The OAuth client must list this callback among its authorized
	// redirect URIs.
	oauthCfg.RedirectURL = "http://localhost:" + port + "/callback"

	code, err := waitForConsent(oauthCfg, port, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	token, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	outFile := cfg.GoogleOAuthTokenFile
	if outFile == "" {
		outFile = "token.json"
	}
	if err := writeToken(outFile, token); err != nil {
		return err
	}
	logger.Info("Token saved", "token_file", outFile)
	return nil
}

// waitForConsent serves the OAuth callback on localhost, prints the
// consent URL, and blocks until the browser redirect delivers an
// authorization code, the timeout elapses, or the process is
// interrupted.
func waitForConsent(oauthCfg *oauth2.Config, port string, logger *log.Logger) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
			http.Error(w, "authorization failed: "+oauthErr, http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", oauthErr)
			return
		}
		fmt.Fprintln(w, "Authorized. You can close this window.")
		codeCh <- r.URL.Query().Get("code")
	})
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer srv.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	url := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open this URL to authorize:\n\n  %s\n\n", url)
	logger.Info("Waiting for authorization", "redirect_url", oauthCfg.RedirectURL)

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(consentTimeout):
		return "", fmt.Errorf("authorization timed out after %s", consentTimeout)
	case <-interrupt:
		return "", fmt.Errorf("interrupted while waiting for authorization")
	}
}

func writeToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
