package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8090" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.PrayerMethod != "karachi" {
		t.Errorf("prayer method = %q", cfg.PrayerMethod)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `listen: ":9999"
timezone: Asia/Karachi
prayer_method: isna
ics:
  - name: masjid
    url: https://example.com/feed.ics
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Timezone != "Asia/Karachi" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
	if len(cfg.ICS) != 1 || cfg.ICS[0].Name != "masjid" {
		t.Errorf("ics = %+v", cfg.ICS)
	}
	// Unset fields fall back to defaults.
	if cfg.RefreshCron != "*/15 * * * *" {
		t.Errorf("refresh = %q", cfg.RefreshCron)
	}
	if cfg.DBPath != "taqwim.db" {
		t.Errorf("db_path = %q", cfg.DBPath)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`listen: ":1111"`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TAQWIM_LISTEN", ":2222")
	t.Setenv("TAQWIM_GOOGLE_CLIENT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":2222" {
		t.Errorf("listen = %q, env should win", cfg.Listen)
	}
	if cfg.Google.ClientSecret != "from-env" {
		t.Errorf("client secret = %q", cfg.Google.ClientSecret)
	}
}

func TestLocationInvalidZone(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Mars/Olympus_Mons"
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestWatcherFiresOnAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	// An atomic save replaces the file via rename; the watcher must still
	// see it.
	cfg.Listen = ":7777"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("second save: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire after config rewrite")
	}
}
