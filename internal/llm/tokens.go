package llm

import (
	"math"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/codefionn/reproschnell/internal/consts"
	"github.com/codefionn/reproschnell/internal/logger"
)

// Tokenizer names accepted by NewEstimator.
const (
	TokenizerRatio    = "ratio"
	TokenizerTiktoken = "tiktoken"
)

// EstimateTokenCount returns a rough token estimate for the provided content.
func EstimateTokenCount(content string) int {
	return charsToTokens(len(content))
}

func charsToTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	tokens := chars / consts.CharsPerToken
	if tokens <= 0 {
		tokens = 1
	}
	return tokens
}

// TokenEstimator counts tokens for budgeting decisions.
type TokenEstimator interface {
	Estimate(text string) int
}

// RatioEstimator is the chars/4 heuristic as a TokenEstimator.
type RatioEstimator struct{}

func (RatioEstimator) Estimate(text string) int {
	return EstimateTokenCount(text)
}

// CharsForTokens is the inverse of Estimate: the number of characters that
// fit into tokens.
func (RatioEstimator) CharsForTokens(tokens float64) int {
	if tokens <= 0 {
		return 0
	}
	return int(math.Floor(tokens * consts.CharsPerToken))
}

// TiktokenEstimator counts tokens with a BPE encoding. It is exact for
// OpenAI models and a closer approximation than the ratio for others.
type TiktokenEstimator struct {
	encoder *tiktoken.Tiktoken
	// Approximate is set when the model had no known encoding.
	Approximate bool
}

// NewTiktokenEstimator picks the encoding for modelID, falling back to
// cl100k_base.
func NewTiktokenEstimator(modelID string) (*TiktokenEstimator, error) {
	name := strings.TrimPrefix(modelID, "models/")
	encoder, err := tiktoken.EncodingForModel(name)
	if err == nil {
		return &TiktokenEstimator{encoder: encoder}, nil
	}

	fallback, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &TiktokenEstimator{encoder: fallback, Approximate: true}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.encoder.Encode(text, nil, nil))
}

// NewEstimator returns the estimator named by tokenizer. Unknown names and
// tiktoken load failures fall back to the ratio heuristic.
func NewEstimator(tokenizer, modelID string) TokenEstimator {
	switch strings.ToLower(strings.TrimSpace(tokenizer)) {
	case TokenizerTiktoken:
		est, err := NewTiktokenEstimator(modelID)
		if err != nil {
			logger.Warn("tiktoken unavailable, using chars/%d estimate: %v", consts.CharsPerToken, err)
			return RatioEstimator{}
		}
		if est.Approximate {
			logger.Debug("No tiktoken encoding for model %s, using cl100k_base", modelID)
		}
		return est
	case "", TokenizerRatio:
		return RatioEstimator{}
	default:
		logger.Warn("Unknown tokenizer %q, using chars/%d estimate", tokenizer, consts.CharsPerToken)
		return RatioEstimator{}
	}
}
