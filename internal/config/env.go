package config

import (
	"os"
	"path/filepath"
)

// ciDataRoot is the volume CI mounts datasets on.
const ciDataRoot = "/pvc-data/"

// applyEnvOverrides resolves dataset roots. Under GITHUB_ACTION everything
// points at the CI volume; otherwise COLEARN_DATA_DIR, TFDS_DATA_DIR and
// PYTORCH_DATA_DIR override the file, and unset roots default to the home
// directory.
func (c *Config) applyEnvOverrides() {
	if os.Getenv("GITHUB_ACTION") != "" {
		c.DataDir = ciDataRoot
		c.TFDSDataDir = filepath.Join(ciDataRoot, "tensorflow_datasets")
		c.PytorchDataDir = filepath.Join(ciDataRoot, "pytorch_datasets")
		return
	}

	c.DataDir = envOr("COLEARN_DATA_DIR", c.DataDir, "datasets")
	c.TFDSDataDir = envOr("TFDS_DATA_DIR", c.TFDSDataDir, "tensorflow_datasets")
	c.PytorchDataDir = envOr("PYTORCH_DATA_DIR", c.PytorchDataDir, "pytorch_datasets")
}

// envOr returns the env var if set, else current, else ~/fallback.
func envOr(key, current, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if current != "" {
		return current
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

// Env returns the dataset roots as environment variables for child processes.
func (c *Config) Env() map[string]string {
	return map[string]string{
		"COLEARN_DATA_DIR": c.DataDir,
		"TFDS_DATA_DIR":    c.TFDSDataDir,
		"PYTORCH_DATA_DIR": c.PytorchDataDir,
	}
}
