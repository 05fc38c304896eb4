package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/PhantomInTheWire/puzzle-builder/pkg/storage"
)

const (
	DefaultOutDir    = "."
	DefaultFormat    = "png"
	DefaultNamespace = "default"
	DefaultJobImage  = "ghcr.io/phantominthewire/puzzle-builder:latest"
	DefaultWasmFunc  = "grayscale"
)

type Config struct {
	OutDir     string
	Format     string
	WasmFilter string
	WasmFunc   string

	Minio storage.MinioConfig

	Namespace   string
	JobImage    string
	MinioSecret string
	Kubeconfig  string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// Load reads .env files (missing ones are skipped) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return &Config{
		OutDir:     getEnv("PUZZLE_OUT_DIR", DefaultOutDir),
		Format:     getEnv("PUZZLE_FORMAT", DefaultFormat),
		WasmFilter: getEnv("PUZZLE_WASM_FILTER", ""),
		WasmFunc:   getEnv("PUZZLE_WASM_FUNC", DefaultWasmFunc),
		Minio: storage.MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "http://localhost:9000"),
			Region:    getEnv("MINIO_REGION", "us-east-1"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "puzzles"),
			Prefix:    getEnv("MINIO_PREFIX", ""),
		},
		Namespace:   getEnv("KUBE_NAMESPACE", DefaultNamespace),
		JobImage:    getEnv("PUZZLE_JOB_IMAGE", DefaultJobImage),
		MinioSecret: getEnv("PUZZLE_MINIO_SECRET", "minio-credentials"),
		Kubeconfig:  getEnv("KUBECONFIG", ""),
	}, nil
}

// JobBackoffLimit is how often a failed puzzle Job pod is retried.
func JobBackoffLimit() int32 {
	return int32(getEnvInt("PUZZLE_JOB_BACKOFF", 1))
}
