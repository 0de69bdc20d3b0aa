package types

import "testing"

func TestObjectID_String(t *testing.T) {
	o := NewObjectID("etl", "configs/invoices.toml")
	if got, want := o.String(), "etl/configs/invoices.toml"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestObjectID_Parent(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"nested file", "configs/inbox/data.csv", "configs/inbox"},
		{"single level", "configs/data.csv", "configs"},
		{"top level", "data.csv", "."},
		{"directory path", "configs/inbox", "configs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewObjectID("etl", tt.path).Parent()
			if got.Path != tt.want {
				t.Errorf("Parent().Path = %q, want %q", got.Path, tt.want)
			}
			if got.Namespace != "etl" {
				t.Errorf("Parent().Namespace = %q, want %q", got.Namespace, "etl")
			}
		})
	}
}

func TestObjectID_Filename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"configs/inbox/data.csv", "data.csv"},
		{"data.csv", "data.csv"},
		{"configs/archive", "archive"},
	}

	for _, tt := range tests {
		got := NewObjectID("etl", tt.path).Filename()
		if got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestObjectID_Rename(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		newName string
		want    string
	}{
		{"nested", "configs/error/data.csv", "data_csv_error_log.txt", "configs/error/data_csv_error_log.txt"},
		{"top level", "data.csv", "other.csv", "other.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewObjectID("etl", tt.path).Rename(tt.newName)
			if got.Path != tt.want {
				t.Errorf("Rename(%q) = %q, want %q", tt.newName, got.Path, tt.want)
			}
		})
	}
}

func TestObjectID_Join(t *testing.T) {
	tests := []struct {
		name string
		path string
		elem []string
		want string
	}{
		{"single element", "configs", []string{"inbox"}, "configs/inbox"},
		{"multiple elements", "configs", []string{"inbox", "data.csv"}, "configs/inbox/data.csv"},
		{"dot parent normalizes away", ".", []string{"inbox"}, "inbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewObjectID("etl", tt.path).Join(tt.elem...)
			if got.Path != tt.want {
				t.Errorf("Join(%v) = %q, want %q", tt.elem, got.Path, tt.want)
			}
		})
	}
}

// A top-level config derives its staging directories at the bucket root.
// Parent of a top-level key is "." and Join must collapse it so that the
// derived inbox compares equal to the parent of files placed inside it.
func TestObjectID_TopLevelRoundTrip(t *testing.T) {
	config := NewObjectID("etl", "invoices.toml")
	inbox := config.Parent().Join("inbox")
	data := NewObjectID("etl", "inbox/data.csv")

	if data.Parent() != inbox {
		t.Errorf("data.Parent() = %v, want %v", data.Parent(), inbox)
	}
}
