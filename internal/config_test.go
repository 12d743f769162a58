package internal

import (
	"reflect"
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultsConfig_Version(t *testing.T) {
	ok := DefaultsConfig{Version: "1.0.0"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid default version rejected: %v", err)
	}
	empty := DefaultsConfig{}
	if err := empty.Validate(); err != nil {
		t.Errorf("empty default version rejected: %v", err)
	}
	bad := DefaultsConfig{Version: "latest"}
	if err := bad.Validate(); err == nil {
		t.Error("non-semver default version should fail")
	}
}

func TestDisplayConfig_SectionList(t *testing.T) {
	d := DisplayConfig{Sections: " Overview, API ,,Notes "}
	got := d.SectionList()
	want := []string{"Overview", "API", "Notes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sections = %v, want %v", got, want)
	}
	if got := (DisplayConfig{}).SectionList(); len(got) != 0 {
		t.Errorf("empty sections = %v", got)
	}
}

func TestFullConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Defaults.Editor != "vi" {
		t.Errorf("editor = %q, want vi", cfg.Defaults.Editor)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
