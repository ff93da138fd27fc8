package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/chorussync/chorus/internal/models"
	"github.com/chorussync/chorus/internal/shared"
	tu "github.com/chorussync/chorus/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("register returns all top-level commands", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "auth", "sync", "enrich", "history"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("expected command %d to be %q, got %q", i, name, commands[i].Name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("surfaces writer failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error from failing writer")
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(output.String(), `{"key":"value"}`) {
				t.Errorf("expected compact JSON, got %s", output.String())
			}
		})
	})

	t.Run("writePlain formats into output", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("imported %d plays\n", 42); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if output.String() != "imported 42 plays\n" {
			t.Errorf("unexpected output: %q", output.String())
		}
	})
}

func TestBuildConnector(t *testing.T) {
	runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
	ctx := context.Background()

	t.Run("unknown service", func(t *testing.T) {
		config := shared.DefaultConfig()

		_, err := runner.buildConnector(ctx, config, "tidal")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("spotify without token", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "id"
		config.Credentials.Spotify.ClientSecret = "secret"

		_, err := runner.buildConnector(ctx, config, "spotify")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("spotify with token", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "id"
		config.Credentials.Spotify.ClientSecret = "secret"
		config.Credentials.Spotify.AccessToken = "token"

		conn, err := runner.buildConnector(ctx, config, "spotify")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if conn.Name() != "spotify" {
			t.Errorf("expected spotify connector, got %s", conn.Name())
		}
	})

	t.Run("lastfm missing credentials", func(t *testing.T) {
		config := shared.DefaultConfig()

		_, err := runner.buildConnector(ctx, config, "lastfm")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("lastfm configured", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Lastfm.APIKey = "key"
		config.Credentials.Lastfm.Username = "listener"

		conn, err := runner.buildConnector(ctx, config, "lastfm")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if conn.Name() != "lastfm" {
			t.Errorf("expected lastfm connector, got %s", conn.Name())
		}
	})
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		name        string
		redirectURI string
		want        string
		wantErr     bool
	}{
		{"standard loopback", "http://localhost:8080/callback", "localhost:8080", false},
		{"custom port", "http://127.0.0.1:9999/callback", "127.0.0.1:9999", false},
		{"empty", "", "", true},
		{"no host", "/callback", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callbackAddr(tt.redirectURI)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractorsFor(t *testing.T) {
	result := models.MatchResult{ServiceData: map[string]any{
		"popularity":  float64(61),
		"duration_ms": float64(245000),
		"playcount":   int64(1200),
		"listeners":   int64(300),
	}}

	t.Run("spotify", func(t *testing.T) {
		extractors := extractorsFor("spotify")
		for _, name := range []string{"popularity", "duration_ms"} {
			extractor, ok := extractors[name]
			if !ok {
				t.Fatalf("expected extractor %q", name)
			}
			value, err := extractor(result)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if value == nil {
				t.Errorf("expected value for %q", name)
			}
		}
	})

	t.Run("lastfm", func(t *testing.T) {
		extractors := extractorsFor("lastfm")
		if _, ok := extractors["playcount"]; !ok {
			t.Error("expected playcount extractor")
		}
		if _, ok := extractors["listeners"]; !ok {
			t.Error("expected listeners extractor")
		}
	})

	t.Run("unknown service has no extractors", func(t *testing.T) {
		if got := len(extractorsFor("tidal")); got != 0 {
			t.Errorf("expected no extractors, got %d", got)
		}
	})
}
