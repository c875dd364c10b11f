package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/services"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/tasks"
	tu "github.com/desertthunder/livewatch/internal/testing"
)

func mockChannel(login, name string, live bool, viewers int) *models.Channel {
	ch := models.NewChannel(login, "mock")
	ch.Name = name
	ch.URLs = []string{"https://www.twitch.tv/" + login}
	ch.ChatURL = "https://www.twitch.tv/popout/" + login + "/chat"
	ch.Live = live
	ch.Viewers = viewers
	if live {
		ch.Title = name + " stream"
		ch.Category = "Chess"
	}
	return ch
}

func setupRunner(t *testing.T) (*Runner, *tu.MockProvider, *bytes.Buffer) {
	t.Helper()

	provider := tu.NewMockProvider()
	provider.Channels["foo"] = mockChannel("foo", "Foo", true, 42)
	provider.Channels["bar"] = mockChannel("bar", "Bar", false, 0)
	provider.Users["bob"] = &models.User{Login: "bob", Type: "mock", Name: "Bob"}
	provider.Favorites["bob"] = []*models.Channel{provider.Channels["foo"], provider.Channels["bar"]}
	provider.Featured = []*models.Channel{mockChannel("baz", "Baz", true, 1000)}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger:    shared.NewLogger(&bytes.Buffer{}),
		Output:    output,
		Store:     tasks.NewMemoryStore(),
		Providers: services.NewProviders(provider),
	})
	return runner, provider, output
}

// run executes args against a fresh app with a config path that does not exist.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "missing.toml")
	argv := append([]string{"livewatch", "--config", configPath}, args...)
	return newApp(r).Run(context.Background(), argv)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("With Dependencies Provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			store := tasks.NewMemoryStore()

			runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output, Store: store})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
		})

		t.Run("With Nil Options Uses Defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.registry == nil {
				t.Error("expected metrics registry to be set")
			}
			if runner.engine != nil {
				t.Error("expected engine to be built lazily")
			}
		})
	})

	t.Run("Engine Requires Client ID", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Twitch.ClientID = ""
		runner := NewRunner(RunnerOpts{Config: config, Store: tasks.NewMemoryStore(), Output: &bytes.Buffer{}})

		if _, err := runner.Engine(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if runner.queue != nil {
			t.Error("expected no queue to be started without credentials")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "channel", "user", "featured", "search", "watch", "serve", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("command %d = %q, want %q", i, commands[i].Name, name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("Pretty", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"live": 1}, true); err != nil {
				t.Fatalf("writeJSON() error = %v", err)
			}
			if output.String() != "{\n  \"live\": 1\n}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("Write Failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON("x", false); err == nil {
				t.Error("expected error")
			}
		})

		t.Run("Newline Failure", func(t *testing.T) {
			output := &bytes.Buffer{}
			lw := tu.NewLimitedWriter(1, 0, output)
			runner := NewRunner(RunnerOpts{Output: &lw})

			err := runner.writeJSON("x", false)
			if err == nil || !strings.Contains(err.Error(), "newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})

		t.Run("Marshal Failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected marshal error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writePlain("%d live\n", 3); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("Loads Config File", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := "[queue]\nconcurrency = 7\n\n[log]\nlevel = \"debug\"\n"
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			runner, _, _ := setupRunner(t)
			err := newApp(runner).Run(context.Background(), []string{"livewatch", "--config", path, "featured", "--provider", "mock"})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if runner.config.Queue.Concurrency != 7 {
				t.Errorf("concurrency = %d, want 7", runner.config.Queue.Concurrency)
			}
			if runner.config.Twitch.PageSize <= 0 {
				t.Error("expected defaults for values missing from the file")
			}
		})

		t.Run("Invalid Config File", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[queue]\nconcurrency = 0\n"), 0o644); err != nil {
				t.Fatal(err)
			}

			runner, _, _ := setupRunner(t)
			err := newApp(runner).Run(context.Background(), []string{"livewatch", "--config", path, "featured"})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})
}

func TestIDArg(t *testing.T) {
	tt := []struct {
		name    string
		arg     string
		wantErr error
	}{
		{name: "Missing", arg: "", wantErr: shared.ErrMissingArgument},
		{name: "Not A Number", arg: "abc", wantErr: shared.ErrInvalidArgument},
		{name: "Zero", arg: "0", wantErr: shared.ErrInvalidArgument},
		{name: "Fraction", arg: "1.5", wantErr: shared.ErrInvalidArgument},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			runner, _, _ := setupRunner(t)
			args := []string{"channel", "remove"}
			if tc.arg != "" {
				args = append(args, tc.arg)
			}

			if err := run(t, runner, args...); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestChannelCommands(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		runner, _, output := setupRunner(t)

		if err := run(t, runner, "channel", "add", "--provider", "mock", "Foo"); err != nil {
			t.Fatalf("channel add error = %v", err)
		}
		if !strings.Contains(output.String(), "✓ Added Foo (#1, live, 42 viewers)") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Add Missing Login", func(t *testing.T) {
		runner, _, _ := setupRunner(t)
		if err := run(t, runner, "channel", "add"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Add Duplicate", func(t *testing.T) {
		runner, _, _ := setupRunner(t)
		if err := run(t, runner, "channel", "add", "-p", "mock", "foo"); err != nil {
			t.Fatal(err)
		}
		if err := run(t, runner, "channel", "add", "-p", "mock", "foo"); !errors.Is(err, shared.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("List Formats", func(t *testing.T) {
		runner, _, output := setupRunner(t)
		for _, login := range []string{"foo", "bar"} {
			if err := run(t, runner, "channel", "add", "-p", "mock", login); err != nil {
				t.Fatal(err)
			}
		}

		tt := []struct {
			name     string
			args     []string
			contains []string
			excludes []string
		}{
			{
				name:     "Text",
				args:     []string{"channel", "list"},
				contains: []string{"Foo (foo)", "Bar (bar) offline"},
			},
			{
				name:     "Live Only",
				args:     []string{"channel", "list", "--live"},
				contains: []string{"Foo (foo)"},
				excludes: []string{"Bar"},
			},
			{
				name:     "Markdown",
				args:     []string{"channel", "list", "--format", "markdown"},
				contains: []string{"# Channels", "## Live", "## Offline"},
			},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				output.Reset()
				if err := run(t, runner, tc.args...); err != nil {
					t.Fatalf("channel list error = %v", err)
				}
				for _, want := range tc.contains {
					if !strings.Contains(output.String(), want) {
						t.Errorf("expected %q in %q", want, output.String())
					}
				}
				for _, unwanted := range tc.excludes {
					if strings.Contains(output.String(), unwanted) {
						t.Errorf("did not expect %q in %q", unwanted, output.String())
					}
				}
			})
		}

		t.Run("CSV File", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "channels.csv")
			if err := run(t, runner, "channel", "list", "-f", "csv", "-o", path); err != nil {
				t.Fatalf("channel list error = %v", err)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			records, err := csv.NewReader(f).ReadAll()
			if err != nil {
				t.Fatalf("invalid csv: %v", err)
			}
			if len(records) != 3 {
				t.Errorf("expected header and 2 rows, got %d", len(records))
			}
		})

		t.Run("Unknown Format", func(t *testing.T) {
			err := run(t, runner, "channel", "list", "-f", "yaml")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("Remove", func(t *testing.T) {
		runner, _, output := setupRunner(t)
		if err := run(t, runner, "channel", "add", "-p", "mock", "foo"); err != nil {
			t.Fatal(err)
		}

		if err := run(t, runner, "channel", "rm", "1"); err != nil {
			t.Fatalf("channel remove error = %v", err)
		}
		if !strings.Contains(output.String(), "✓ Removed channel #1") {
			t.Errorf("unexpected output %q", output.String())
		}
		if err := run(t, runner, "channel", "rm", "1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		runner, provider, output := setupRunner(t)
		if err := run(t, runner, "channel", "add", "-p", "mock", "foo"); err != nil {
			t.Fatal(err)
		}
		provider.Channels["foo"].Live = false

		output.Reset()
		if err := run(t, runner, "channel", "refresh"); err != nil {
			t.Fatalf("channel refresh error = %v", err)
		}
		if !strings.Contains(output.String(), "Foo (foo) offline") {
			t.Errorf("expected channel to be offline after refresh, got %q", output.String())
		}

		output.Reset()
		if err := run(t, runner, "channel", "refresh", "1"); err != nil {
			t.Fatalf("channel refresh by id error = %v", err)
		}
		if !strings.Contains(output.String(), "Foo (foo) offline") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Open", func(t *testing.T) {
		runner, _, _ := setupRunner(t)
		var opened []string
		runner.open = func(url string) error {
			opened = append(opened, url)
			return nil
		}
		if err := run(t, runner, "channel", "add", "-p", "mock", "foo"); err != nil {
			t.Fatal(err)
		}

		if err := run(t, runner, "channel", "open", "1"); err != nil {
			t.Fatalf("channel open error = %v", err)
		}
		if err := run(t, runner, "channel", "open", "--chat", "1"); err != nil {
			t.Fatalf("channel open --chat error = %v", err)
		}

		want := []string{"https://www.twitch.tv/foo", "https://www.twitch.tv/popout/foo/chat"}
		if strings.Join(opened, " ") != strings.Join(want, " ") {
			t.Errorf("opened %v, want %v", opened, want)
		}
	})

	t.Run("Featured And Search", func(t *testing.T) {
		tt := []struct {
			name string
			args []string
		}{
			{name: "Featured", args: []string{"featured", "-p", "mock"}},
			{name: "Search", args: []string{"search", "-p", "mock", "baz"}},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				runner, _, output := setupRunner(t)
				if err := run(t, runner, tc.args...); err != nil {
					t.Fatalf("%s error = %v", tc.name, err)
				}
				if !strings.Contains(output.String(), "Baz (baz)") {
					t.Errorf("unexpected output %q", output.String())
				}
			})
		}

		t.Run("Search Without Query", func(t *testing.T) {
			runner, _, _ := setupRunner(t)
			if err := run(t, runner, "search", "-p", "mock"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Unknown Provider", func(t *testing.T) {
			runner, _, _ := setupRunner(t)
			if err := run(t, runner, "featured", "-p", "hitbox"); !errors.Is(err, shared.ErrUnknownProvider) {
				t.Errorf("expected ErrUnknownProvider, got %v", err)
			}
		})
	})
}

func TestUserCommands(t *testing.T) {
	t.Run("Add And List", func(t *testing.T) {
		runner, _, output := setupRunner(t)

		if err := run(t, runner, "user", "add", "-p", "mock", "bob"); err != nil {
			t.Fatalf("user add error = %v", err)
		}
		if !strings.Contains(output.String(), "✓ Added Bob (#1, 2 favorites)") {
			t.Errorf("unexpected output %q", output.String())
		}

		channels, err := runner.store.Channels(context.Background(), "mock")
		if err != nil {
			t.Fatal(err)
		}
		if len(channels) != 2 {
			t.Errorf("expected favorites to be tracked, got %d channels", len(channels))
		}

		output.Reset()
		if err := run(t, runner, "user", "list"); err != nil {
			t.Fatalf("user list error = %v", err)
		}
		if !strings.Contains(output.String(), "Bob (bob on mock) - 2 favorites") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("Refresh Prints New Favorites", func(t *testing.T) {
		runner, provider, output := setupRunner(t)
		if err := run(t, runner, "user", "add", "-p", "mock", "bob"); err != nil {
			t.Fatal(err)
		}
		provider.Channels["qux"] = mockChannel("qux", "Qux", true, 3)
		provider.Favorites["bob"] = append(provider.Favorites["bob"], provider.Channels["qux"])

		output.Reset()
		if err := run(t, runner, "user", "refresh"); err != nil {
			t.Fatalf("user refresh error = %v", err)
		}
		if !strings.Contains(output.String(), "+ qux") {
			t.Errorf("expected new favorite in output, got %q", output.String())
		}
	})

	t.Run("Remove With Favorites", func(t *testing.T) {
		runner, _, _ := setupRunner(t)
		if err := run(t, runner, "user", "add", "-p", "mock", "bob"); err != nil {
			t.Fatal(err)
		}

		if err := run(t, runner, "user", "rm", "--favorites", "1"); err != nil {
			t.Fatalf("user remove error = %v", err)
		}

		channels, err := runner.store.Channels(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		if len(channels) != 0 {
			t.Errorf("expected favorites to be removed, got %d channels", len(channels))
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner, _, output := setupRunner(t)

		if err := newApp(runner).Run(context.Background(), []string{"livewatch", "-c", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config error = %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "✓ Wrote") {
			t.Errorf("unexpected output %q", output.String())
		}

		err := newApp(runner).Run(context.Background(), []string{"livewatch", "-c", path, "setup", "config"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected existing config to be kept, got %v", err)
		}
	})

	t.Run("Database", func(t *testing.T) {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "data", "livewatch.db")
		configPath := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(configPath, []byte("[database]\npath = \""+dbPath+"\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Output: &bytes.Buffer{}})
		output := runner.output.(*bytes.Buffer)

		if err := newApp(runner).Run(context.Background(), []string{"livewatch", "-c", configPath, "setup", "database"}); err != nil {
			t.Fatalf("setup database error = %v", err)
		}
		tu.AssertFileExists(t, dbPath)
		if !strings.Contains(output.String(), "at version 2") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		args := []string{"livewatch", "-c", configPath, "setup", "database", "--rollback"}
		if err := newApp(runner).Run(context.Background(), args); err != nil {
			t.Fatalf("rollback error = %v", err)
		}
		if !strings.Contains(output.String(), "at version 1") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}
