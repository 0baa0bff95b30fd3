// Package config loads the syncer's typed configuration from
// PYNEOUMLSSYNCER_-prefixed environment variables, optionally seeded
// from a .env file, mirroring the teacher's envutil helpers but
// centralized into one struct per the spec's option table.
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/platform/logger"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

const envPrefix = "PYNEOUMLSSYNCER_"

// Config holds every option named in spec.md section 6.
type Config struct {
	UmlsAPIKey string

	Neo4jURI             string
	Neo4jUser            string
	Neo4jPassword        string
	Neo4jDatabase        string
	Neo4jImportDir       string
	Neo4jTimeoutSeconds  int
	Neo4jMaxPoolSize     int

	SabFilter   []string
	SabPriority []string

	SuppressionHandling map[string]bool

	MaxParallelProcesses   int
	ApocBatchSize          int
	MalformedRowThreshold  int

	DownloadDir string
}

var defaultSabPriority = []string{
	"RXNORM", "SNOMEDCT_US", "MTH", "MSH", "LNC", "GO", "HGNC",
	"NCBI", "OMIM", "ICD10CM", "CPT",
}

var defaultSuppression = []string{"O", "Y"}

// Load reads a .env file (if present, ignored if absent) and then the
// environment, returning a populated Config or a Configuration error
// for missing required fields.
func Load(log *logger.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		if log != nil {
			log.Warn("failed to load .env file", "error", err)
		}
	}

	cfg := &Config{
		UmlsAPIKey: getEnv(envPrefix+"UMLS_API_KEY", "", log),

		Neo4jURI:            getEnv(envPrefix+"NEO4J_URI", "neo4j://localhost:7687", log),
		Neo4jUser:           getEnv(envPrefix+"NEO4J_USER", "neo4j", log),
		Neo4jPassword:       getEnv(envPrefix+"NEO4J_PASSWORD", "password", log),
		Neo4jDatabase:       getEnv(envPrefix+"NEO4J_DATABASE", "neo4j", log),
		Neo4jImportDir:      getEnv(envPrefix+"NEO4J_IMPORT_DIR", "", log),
		Neo4jTimeoutSeconds: getEnvInt(envPrefix+"NEO4J_TIMEOUT_SECONDS", 10, log),
		Neo4jMaxPoolSize:    getEnvInt(envPrefix+"NEO4J_MAX_POOL_SIZE", 50, log),

		SabFilter:   getEnvList(envPrefix+"SAB_FILTER", nil, log),
		SabPriority: getEnvList(envPrefix+"SAB_PRIORITY", defaultSabPriority, log),

		MaxParallelProcesses:  getEnvInt(envPrefix+"MAX_PARALLEL_PROCESSES", runtime.NumCPU(), log),
		ApocBatchSize:         getEnvInt(envPrefix+"APOC_BATCH_SIZE", 10000, log),
		MalformedRowThreshold: getEnvInt(envPrefix+"MAX_MALFORMED_ROWS", 1000, log),

		DownloadDir: getEnv(envPrefix+"DOWNLOAD_DIR", "./umls_download", log),
	}

	suppressList := getEnvList(envPrefix+"SUPPRESSION_HANDLING", defaultSuppression, log)
	cfg.SuppressionHandling = make(map[string]bool, len(suppressList))
	for _, s := range suppressList {
		cfg.SuppressionHandling[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	if cfg.UmlsAPIKey == "" {
		return nil, syncerr.New(syncerr.Configuration, "missing "+envPrefix+"UMLS_API_KEY", nil)
	}
	if cfg.Neo4jImportDir == "" {
		return nil, syncerr.New(syncerr.Configuration, "missing "+envPrefix+"NEO4J_IMPORT_DIR", nil)
	}
	if cfg.MaxParallelProcesses <= 0 {
		cfg.MaxParallelProcesses = runtime.NumCPU()
	}
	if cfg.ApocBatchSize <= 0 {
		cfg.ApocBatchSize = 10000
	}

	return cfg, nil
}

// SabAllowed reports whether sab passes the configured allowlist
// ("empty means all" per spec.md section 6).
func (c *Config) SabAllowed(sab string) bool {
	if len(c.SabFilter) == 0 {
		return true
	}
	for _, s := range c.SabFilter {
		if s == sab {
			return true
		}
	}
	return false
}

func getEnv(key, def string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return def
	}
	return val
}

func getEnvInt(key string, def int, log *logger.Logger) int {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		if log != nil {
			log.Warn("could not parse env var as int, using default", "env_var", key, "raw", raw, "default", def)
		}
		return def
	}
	return n
}

func getEnvList(key string, def []string, log *logger.Logger) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
