package processor

import (
	"testing"

	"github.com/cast-iron/crucible/types"
)

func mustParse(t *testing.T, toml string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(toml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestStagingPaths_Defaults(t *testing.T) {
	cfg := mustParse(t, "glob = \"*.csv\"\nshell = \"true\"")
	configID := types.NewObjectID("etl", "invoices/config.toml")

	tests := []struct {
		name string
		got  types.ObjectID
		want string
	}{
		{"inbox", cfg.InboxPath(configID), "invoices/inbox"},
		{"processing", cfg.ProcessingPath(configID), "invoices/processing"},
		{"archive", cfg.ArchivePath(configID), "invoices/archive"},
		{"error", cfg.ErrorPath(configID), "invoices/error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Path != tt.want {
				t.Errorf("path = %q, want %q", tt.got.Path, tt.want)
			}
			if tt.got.Namespace != "etl" {
				t.Errorf("namespace = %q, want %q", tt.got.Namespace, "etl")
			}
		})
	}
}

func TestStagingPaths_CustomDirectories(t *testing.T) {
	cfg := mustParse(t, `
inbox_directory = "in"
archive_directory = "done"
glob = "*.csv"
shell = "true"
`)
	configID := types.NewObjectID("etl", "invoices/config.toml")

	if got := cfg.InboxPath(configID).Path; got != "invoices/in" {
		t.Errorf("InboxPath = %q, want %q", got, "invoices/in")
	}
	if got := cfg.ArchivePath(configID).Path; got != "invoices/done" {
		t.Errorf("ArchivePath = %q, want %q", got, "invoices/done")
	}
}

func TestStagingPaths_TopLevelConfig(t *testing.T) {
	cfg := mustParse(t, "glob = \"*.csv\"\nshell = \"true\"")
	configID := types.NewObjectID("etl", "config.toml")

	if got := cfg.InboxPath(configID).Path; got != "inbox" {
		t.Errorf("InboxPath = %q, want %q", got, "inbox")
	}
}

func TestMatches(t *testing.T) {
	cfg := mustParse(t, "glob = \"*.csv\"\nshell = \"true\"")
	configID := types.NewObjectID("etl", "invoices/config.toml")

	tests := []struct {
		name string
		data types.ObjectID
		want bool
	}{
		{"inbox match", types.NewObjectID("etl", "invoices/inbox/data.csv"), true},
		{"glob miss", types.NewObjectID("etl", "invoices/inbox/data.txt"), false},
		{"outside inbox", types.NewObjectID("etl", "invoices/archive/data.csv"), false},
		{"nested below inbox", types.NewObjectID("etl", "invoices/inbox/sub/data.csv"), false},
		{"other namespace", types.NewObjectID("other", "invoices/inbox/data.csv"), false},
		{"sibling config tree", types.NewObjectID("etl", "orders/inbox/data.csv"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Matches(configID, tt.data); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestMatches_CustomInbox(t *testing.T) {
	cfg := mustParse(t, "inbox_directory = \"in\"\nglob = \"*.csv\"\nshell = \"true\"")
	configID := types.NewObjectID("etl", "cfg/a.toml")

	if !cfg.Matches(configID, types.NewObjectID("etl", "cfg/in/data.csv")) {
		t.Error("file in custom inbox should match")
	}
	if cfg.Matches(configID, types.NewObjectID("etl", "cfg/inbox/data.csv")) {
		t.Error("file in default inbox name should not match when overridden")
	}
}

func TestMatches_QuestionMarkGlob(t *testing.T) {
	cfg := mustParse(t, "glob = \"report-?.txt\"\nshell = \"true\"")
	configID := types.NewObjectID("etl", "cfg/a.toml")

	if !cfg.Matches(configID, types.NewObjectID("etl", "cfg/inbox/report-1.txt")) {
		t.Error("report-1.txt should match report-?.txt")
	}
	if cfg.Matches(configID, types.NewObjectID("etl", "cfg/inbox/report-10.txt")) {
		t.Error("report-10.txt should not match report-?.txt")
	}
}

func TestErrorLogName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"data.csv", "data_csv_error_log.txt"},
		{"archive.tar.gz", "archive_tar_gz_error_log.txt"},
		{"noext", "noext_error_log.txt"},
	}

	for _, tt := range tests {
		if got := ErrorLogName(tt.filename); got != tt.want {
			t.Errorf("ErrorLogName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
