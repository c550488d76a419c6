package asr

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the configuration for the ASR recognizer
type Config struct {
	ModelPath   string // Base directory for the model
	EncoderPath string // Path to encoder.onnx or encoder.int8.onnx
	DecoderPath string // Path to decoder.onnx
	JoinerPath  string // Path to joiner.onnx or joiner.int8.onnx
	TokensPath  string // Path to tokens.txt
	NumThreads  int    // Number of threads for inference
	SampleRate  int    // Audio sample rate (typically 16000)
}

// DefaultModelDir is where the Korean zipformer transducer is expected.
const DefaultModelDir = "models/sherpa-onnx-zipformer-korean-2024-06-24"

// NewConfig creates a new configuration from a model directory
// It automatically detects the model files in the directory
func NewConfig(modelDir string) (*Config, error) {
	if modelDir == "" {
		modelDir = DefaultModelDir
	}
	config := &Config{
		ModelPath:  modelDir,
		NumThreads: 2,
		SampleRate: 16000,
	}

	// prefer int8 quantized versions
	lookups := []struct {
		name       string
		dst        *string
		candidates []string
	}{
		{"encoder", &config.EncoderPath, []string{
			"encoder-epoch-99-avg-1.int8.onnx", "encoder.int8.onnx", "encoder-epoch-99-avg-1.onnx", "encoder.onnx",
		}},
		{"decoder", &config.DecoderPath, []string{"decoder-epoch-99-avg-1.onnx", "decoder.onnx"}},
		{"joiner", &config.JoinerPath, []string{
			"joiner-epoch-99-avg-1.int8.onnx", "joiner.int8.onnx", "joiner-epoch-99-avg-1.onnx", "joiner.onnx",
		}},
		{"tokens", &config.TokensPath, []string{"tokens.txt"}},
	}
	for _, l := range lookups {
		path := findModelFile(modelDir, l.candidates)
		if path == "" {
			return nil, fmt.Errorf("%s model not found in %s", l.name, modelDir)
		}
		*l.dst = path
	}
	return config, nil
}

// Validate checks if all required model files exist
func (c *Config) Validate() error {
	files := map[string]string{
		"encoder": c.EncoderPath,
		"decoder": c.DecoderPath,
		"joiner":  c.JoinerPath,
		"tokens":  c.TokensPath,
	}
	for name, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("%s file not found: %s", name, path)
		}
	}
	return nil
}

// findModelFile returns the first candidate that exists in dir, or ""
func findModelFile(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
