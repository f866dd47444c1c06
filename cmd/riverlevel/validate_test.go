package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeValidateCmd runs the validate command with the given config path
// and returns captured stdout and any error.
func executeValidateCmd(t *testing.T, configPath string) (string, error) {
	t.Helper()

	// capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// flag values persist on the shared rootCmd between Execute calls,
	// so clear any -c value left over from a previous test
	_ = validateCmd.Flags().Set("config", "")

	args := []string{"validate"}
	if configPath != "" {
		args = append(args, "-c", configPath)
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	// restore stdout
	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)

	return buf.String(), err
}

func TestRunValidate_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
river_measure_url: https://environment.data.gov.uk/flood-monitoring/id/measures/1491TH
river_station_url: https://environment.data.gov.uk/flood-monitoring/id/stations/1491TH
rain_measure_url: https://environment.data.gov.uk/flood-monitoring/id/measures/292070TP
rain_station_url: https://environment.data.gov.uk/flood-monitoring/id/stations/292070
metrics_port: 9100
health_port: 9101
poll_interval: 30s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	output, err := executeValidateCmd(t, configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Metrics port:   9100",
		"Health port:    9101",
		"Poll interval:  30s",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
river_measure_url: "ftp://example.com/data"
metrics_port: 9100
health_port: 9100
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := executeValidateCmd(t, configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	// Both violations must be reported, not just the first.
	if !strings.Contains(err.Error(), "scheme") {
		t.Errorf("error should mention the URL scheme violation, got: %v", err)
	}
	if !strings.Contains(err.Error(), "port") {
		t.Errorf("error should mention the port collision, got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeValidateCmd(t, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestRunValidate_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("CONTAINERISED", "")

	output, err := executeValidateCmd(t, "")
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(output, "Config is valid!") {
		t.Errorf("output missing validity confirmation\nGot: %s", output)
	}
	if !strings.Contains(output, "Metrics port:   8897") {
		t.Errorf("output missing default metrics port\nGot: %s", output)
	}
}
