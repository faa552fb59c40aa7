package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidate_DefaultsPass(t *testing.T) {
	t.Parallel()
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got: %v", err)
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.BaseURL = "not a url"
	cfg.Browser = "netscape"
	cfg.APITimeout = 0
	cfg.RateBurst = 0
	cfg.Parallel = 0
	cfg.ArtifactBucket = "reports"

	err := cfg.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	msg := err.Error()
	for _, expected := range []string{
		"NOTES_BASE_URL",
		"NOTES_BROWSER",
		"NOTES_API_TIMEOUT",
		"NOTES_RATE_BURST",
		"NOTES_PARALLEL",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
	} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}
}

func testValidate_RejectsNonHTTPSchemes(t *rapid.T) {
	cfg := Default()
	scheme := rapid.SampledFrom([]string{"ftp", "file", "ws", "gopher"}).Draw(t, "scheme")
	host := rapid.StringMatching(`[a-z]{3,12}\.example`).Draw(t, "host")
	cfg.BaseURL = scheme + "://" + host + "/notes/"

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected %q to be rejected", cfg.BaseURL)
	}
	if !strings.Contains(err.Error(), "http or https") {
		t.Fatalf("unexpected validation message: %v", err)
	}
}

func TestValidate_RejectsNonHTTPSchemes(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsNonHTTPSchemes)
}

func testURLHelpers_NormalizeSlashes(t *rapid.T) {
	cfg := Default()
	slashes := strings.Repeat("/", rapid.IntRange(0, 3).Draw(t, "slashes"))
	cfg.BaseURL = "https://practice.expandtesting.com/notes" + slashes
	route := strings.Repeat("/", rapid.IntRange(0, 2).Draw(t, "leading")) + "app/login"

	if got := cfg.APIBaseURL(); got != "https://practice.expandtesting.com/notes/api/" {
		t.Fatalf("APIBaseURL mismatch: %q", got)
	}
	if got := cfg.AppURL(route); got != "https://practice.expandtesting.com/notes/app/login" {
		t.Fatalf("AppURL mismatch: %q", got)
	}
}

func TestURLHelpers_NormalizeSlashes(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testURLHelpers_NormalizeSlashes)
}

func TestLoadConfig_LayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes-e2e.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"base_url: http://localhost:9000/notes/\n"+
			"parallel: 3\n"+
			"headless: false\n"+
			"api_timeout: 5s\n"), 0o600))

	t.Setenv("NOTES_E2E_CONFIG", path)
	t.Setenv("NOTES_PARALLEL", "4")
	t.Setenv("NOTES_ARTIFACT_ENDPOINT", "http://s3.local/")
	t.Setenv("NOTES_ARTIFACT_BUCKET", "runs")
	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/notes/", cfg.BaseURL)
	assert.Equal(t, 4, cfg.Parallel)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.True(t, cfg.ArtifactsEnabled())
	assert.Equal(t, "http://s3.local/runs", cfg.ArtifactPublicURL)
}

func TestLoadConfig_BadFile(t *testing.T) {
	t.Setenv("NOTES_E2E_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-an-int")
	t.Setenv("CFG_TEST_FLOAT", "not-a-float")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	t.Setenv("CFG_TEST_BOOL", "maybe")
	if got := parseIntOrDefault("CFG_TEST_INT", 7); got != 7 {
		t.Fatalf("parseIntOrDefault fallback mismatch: got=%d want=7", got)
	}
	if got := parseFloat64OrDefault("CFG_TEST_FLOAT", 3.5); got != 3.5 {
		t.Fatalf("parseFloat64OrDefault fallback mismatch: got=%v want=3.5", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v want=%v", got, 2*time.Minute)
	}
	if got := parseBoolOrDefault("CFG_TEST_BOOL", true); !got {
		t.Fatal("parseBoolOrDefault fallback mismatch: got=false want=true")
	}
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	key := "CFG_TEST_STR_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	t.Setenv(key, "   value   ")

	if got := getEnvOrDefault(key, "fallback"); got != "value" {
		t.Fatalf("getEnvOrDefault trim mismatch: got=%q want=%q", got, "value")
	}
}
