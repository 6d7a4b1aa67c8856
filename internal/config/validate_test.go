package config

import (
	"strings"
	"testing"
)

func TestValidateEnum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty value is ok", "", false},
		{"valid value", "warning", false},
		{"abbreviation", "warn", true},
		{"case sensitive", "INFO", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateEnum(tt.value, "logging.level", ValidLogLevels)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEnum(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        LoggingConfig
		wantLevel string
		wantErr   string
	}{
		{"upper case level", LoggingConfig{Level: "WARNING"}, "warning", ""},
		{"padded level", LoggingConfig{Level: " debug "}, "debug", ""},
		{"empty level", LoggingConfig{}, "info", ""},
		{"unknown level", LoggingConfig{Level: "trace"}, "", `must be "debug", "info", "warning", or "error"`},
		{"relative file", LoggingConfig{Level: "info", File: "logs/x.log"}, "", "logging.file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lc := tt.in
			err := validateLogging(&lc)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("validateLogging() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validateLogging() error = %v", err)
			}
			if lc.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", lc.Level, tt.wantLevel)
			}
		})
	}
}

func TestValidateUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		user    UserConfig
		wantErr bool
	}{
		{"plain", UserConfig{Name: "Alice", Email: "alice@example.com"}, false},
		{"empty", UserConfig{}, false},
		{"comment characters", UserConfig{Name: `Team #1; "ops"`, Email: "ops@example.com"}, false},
		{"newline in name", UserConfig{Name: "Eve\n[core]", Email: "eve@example.com"}, true},
		{"nul in email", UserConfig{Name: "Eve", Email: "eve\x00@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateUser(tt.user)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateUser(%+v) error = %v, wantErr %v", tt.user, err, tt.wantErr)
			}
		})
	}
}

func TestValidateExcludePatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		wantErr  bool
	}{
		{"valid patterns", []string{"*/node_modules/*", "/srv/**/tmp"}, false},
		{"nil patterns", nil, false},
		{"only wildcards", []string{"*/vendor/*", "**"}, true},
		{"question marks", []string{"??"}, true},
		{"invalid glob", []string{"[bad"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateExcludePatterns(tt.patterns)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateExcludePatterns(%v) error = %v, wantErr %v", tt.patterns, err, tt.wantErr)
			}
		})
	}
}

func TestFormatOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []string
		want string
	}{
		{"single option", []string{"a"}, `"a"`},
		{"two options", []string{"a", "b"}, `"a" or "b"`},
		{"three options", []string{"a", "b", "c"}, `"a", "b", or "c"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatOptions(tt.opts)
			if got != tt.want {
				t.Errorf("formatOptions(%v) = %q, want %q", tt.opts, got, tt.want)
			}
		})
	}
}
