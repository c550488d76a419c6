package asr

import (
	"fmt"
	"os"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// Recognizer handles speech recognition using Sherpa-ONNX.
// Decoding is serialized; one recognizer is shared by all jobs.
type Recognizer struct {
	mu         sync.Mutex
	config     *Config
	recognizer *sherpa.OfflineRecognizer
}

// NewRecognizer creates a new ASR recognizer with the given configuration
func NewRecognizer(config *Config) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sherpaConfig := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: config.SampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Transducer: sherpa.OfflineTransducerModelConfig{
				Encoder: config.EncoderPath,
				Decoder: config.DecoderPath,
				Joiner:  config.JoinerPath,
			},
			Tokens:     config.TokensPath,
			NumThreads: config.NumThreads,
			Debug:      0,
		},
	}

	recognizer := sherpa.NewOfflineRecognizer(&sherpaConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create offline recognizer")
	}
	return &Recognizer{config: config, recognizer: recognizer}, nil
}

// TranscribeFile decodes a 16kHz mono WAV file and returns its text and tokens.
func (r *Recognizer) TranscribeFile(wavPath string) (string, []Token, error) {
	if _, err := os.Stat(wavPath); os.IsNotExist(err) {
		return "", nil, fmt.Errorf("file not found: %s", wavPath)
	}
	wave := sherpa.ReadWave(wavPath)
	if wave == nil || len(wave.Samples) == 0 {
		return "", nil, fmt.Errorf("failed to read WAV file or file is empty")
	}
	text, tokens := r.decode(wave.Samples, wave.SampleRate)
	return text, tokens, nil
}

func (r *Recognizer) decode(samples []float32, sampleRate int) (string, []Token) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream := sherpa.NewOfflineStream(r.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	r.recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return "", nil
	}

	tokens := make([]Token, 0, len(result.Tokens))
	for i, text := range result.Tokens {
		if text == "" {
			continue
		}
		tok := Token{Text: text}
		if i < len(result.Timestamps) {
			tok.StartTime = result.Timestamps[i]
		}
		if i < len(result.Durations) {
			tok.Duration = result.Durations[i]
		}
		tokens = append(tokens, tok)
	}
	return result.Text, tokens
}

// Close releases resources used by the recognizer
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(r.recognizer)
		r.recognizer = nil
	}
	return nil
}
