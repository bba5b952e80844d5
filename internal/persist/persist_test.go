package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/terratap-core/internal/infrastructure/config"
	"github.com/nerrad567/terratap-core/internal/settings"
	"github.com/nerrad567/terratap-core/internal/state"
	_ "github.com/nerrad567/terratap-core/migrations"
)

// recordingLogger keeps the messages it was given.
type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

// failingStore fails every call.
type failingStore struct{ err error }

func (s failingStore) Read(context.Context, string) ([]byte, error) { return nil, s.err }
func (s failingStore) Write(context.Context, string, []byte) error  { return s.err }

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlite, closeDB, err := Open(ctx, config.PersistenceConfig{
		Backend:  config.BackendSQLite,
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "terratap.db"), BusyTimeout: 5},
	})
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	t.Cleanup(func() { closeDB() }) //nolint:errcheck // test cleanup

	return map[string]Store{
		"file":   NewFileStore(t.TempDir()),
		"sqlite": sqlite,
	}
}

func TestLoadOrDefault_Absent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			logger := &recordingLogger{}

			got := LoadOrDefault(context.Background(), store, KeySettings, settings.Default, logger)

			if diff := cmp.Diff(settings.Default(), got, cmp.AllowUnexported(settings.ClockTime{})); diff != "" {
				t.Errorf("LoadOrDefault() mismatch (-want +got):\n%s", diff)
			}
			if len(logger.warns) != 0 {
				t.Errorf("absent copy should not warn, got %v", logger.warns)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			want := settings.Settings{
				CheckTime:     settings.MustClockTime(21, 45),
				CheckDuration: 10,
				OpenDuration:  90,
			}
			if err := Save(ctx, store, KeySettings, want); err != nil {
				t.Fatalf("Save(settings) error = %v", err)
			}
			if err := Save(ctx, store, KeyState, state.State{WateringNeeded: true}); err != nil {
				t.Fatalf("Save(state) error = %v", err)
			}

			logger := &recordingLogger{}
			got := LoadOrDefault(ctx, store, KeySettings, settings.Default, logger)
			if diff := cmp.Diff(want, got, cmp.AllowUnexported(settings.ClockTime{})); diff != "" {
				t.Errorf("settings mismatch (-want +got):\n%s", diff)
			}

			st := LoadOrDefault(ctx, store, KeyState, state.Default, logger)
			if !st.WateringNeeded {
				t.Error("state.WateringNeeded = false, want true")
			}

			// Saving again overwrites.
			if err := Save(ctx, store, KeyState, state.Default()); err != nil {
				t.Fatalf("second Save(state) error = %v", err)
			}
			if LoadOrDefault(ctx, store, KeyState, state.Default, logger).WateringNeeded {
				t.Error("overwritten state still has WateringNeeded = true")
			}
		})
	}
}

func TestLoadOrDefault_Corrupt(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"bad clock time", `{"check_time":"25:99","check_duration":30,"open_duration":300}`},
		{"fails validation", `{"check_time":"03:00","check_duration":0,"open_duration":300}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewFileStore(t.TempDir())
			if err := store.Write(ctx, KeySettings, []byte(tt.body)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			logger := &recordingLogger{}
			got := LoadOrDefault(ctx, store, KeySettings, settings.Default, logger)

			if diff := cmp.Diff(settings.Default(), got, cmp.AllowUnexported(settings.ClockTime{})); diff != "" {
				t.Errorf("LoadOrDefault() mismatch (-want +got):\n%s", diff)
			}
			if len(logger.warns) != 1 {
				t.Errorf("warnings = %v, want exactly one", logger.warns)
			}
		})
	}
}

func TestLoadOrDefault_ReadError(t *testing.T) {
	logger := &recordingLogger{}
	store := failingStore{err: errors.New("disk on fire")}

	got := LoadOrDefault(context.Background(), store, KeyState, state.Default, logger)

	if got != state.Default() {
		t.Errorf("LoadOrDefault() = %+v, want default", got)
	}
	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want exactly one", logger.warns)
	}
}

func TestSave_Error(t *testing.T) {
	store := failingStore{err: errors.New("read-only filesystem")}

	err := Save(context.Background(), store, KeyState, state.Default())
	if err == nil {
		t.Fatal("Save() expected error, got nil")
	}
}

func TestFileStore_Layout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store := NewFileStore(dir)

	if err := Save(context.Background(), store, KeyState, state.State{WateringNeeded: true}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "state.json")
	if store.Path(KeyState) != path {
		t.Errorf("Path() = %q, want %q", store.Path(KeyState), path)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	want := "{\n  \"watering_needed\": true\n}"
	if string(body) != want {
		t.Errorf("state.json = %q, want %q", body, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only state.json", len(entries))
	}
}

func TestFileStore_ReadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())

	if _, err := store.Read(context.Background(), KeySettings); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), config.PersistenceConfig{Backend: "etcd"}); err == nil {
		t.Error("Open() expected error for unknown backend")
	}
}
