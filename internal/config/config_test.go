package config

import (
	"os"
	"testing"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key := kv[:i]
				if len(key) > len(envPrefix) && key[:len(envPrefix)] == envPrefix {
					os.Unsetenv(key)
				}
				break
			}
		}
	}
}

func TestLoad_MissingUmlsAPIKeyIsConfigurationError(t *testing.T) {
	clearEnv(t)
	t.Setenv(envPrefix+"NEO4J_IMPORT_DIR", "/tmp/import")

	_, err := Load(nil)
	if err == nil {
		t.Fatalf("expected error for missing UMLS API key")
	}
	if !syncerr.Is(err, syncerr.Configuration) {
		t.Fatalf("expected a Configuration error kind, got %v", err)
	}
}

func TestLoad_MissingImportDirIsConfigurationError(t *testing.T) {
	clearEnv(t)
	t.Setenv(envPrefix+"UMLS_API_KEY", "test-key")

	_, err := Load(nil)
	if err == nil {
		t.Fatalf("expected error for missing neo4j import dir")
	}
	if !syncerr.Is(err, syncerr.Configuration) {
		t.Fatalf("expected a Configuration error kind, got %v", err)
	}
}

func TestLoad_AppliesDefaultsWhenOptionalVarsAbsent(t *testing.T) {
	clearEnv(t)
	t.Setenv(envPrefix+"UMLS_API_KEY", "test-key")
	t.Setenv(envPrefix+"NEO4J_IMPORT_DIR", "/tmp/import")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.SabPriority) == 0 {
		t.Fatalf("expected default SAB priority list to be populated")
	}
	if !cfg.SuppressionHandling["O"] || !cfg.SuppressionHandling["Y"] {
		t.Fatalf("expected default suppression handling to include O and Y, got %v", cfg.SuppressionHandling)
	}
}

func TestSabAllowed_EmptyFilterAllowsEverything(t *testing.T) {
	cfg := &Config{}
	if !cfg.SabAllowed("ANYTHING") {
		t.Fatalf("expected empty filter to allow all SABs")
	}
}

func TestSabAllowed_RespectsAllowlist(t *testing.T) {
	cfg := &Config{SabFilter: []string{"RXNORM", "MTH"}}
	if !cfg.SabAllowed("RXNORM") {
		t.Fatalf("expected RXNORM to be allowed")
	}
	if cfg.SabAllowed("SNOMEDCT_US") {
		t.Fatalf("expected SNOMEDCT_US to be rejected")
	}
}
