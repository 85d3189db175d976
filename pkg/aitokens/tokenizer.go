package aitokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"github.com/beeper/ai-companion/pkg/companion"
)

// Approximate characters per token for heuristic estimation
const charsPerToken = 4

// Token overhead per message (consistent across GPT models)
const tokensPerMessage = 3

var (
	tokenizerCache   = make(map[string]*tiktoken.Tiktoken)
	tokenizerCacheMu sync.RWMutex
)

// Estimator estimates the token count of a piece of text.
type Estimator interface {
	EstimateText(text string) int
}

// HeuristicEstimator estimates one token per four characters.
type HeuristicEstimator struct{}

func (HeuristicEstimator) EstimateText(text string) int {
	chars := len([]rune(text))
	return (chars + charsPerToken - 1) / charsPerToken
}

// TiktokenEstimator counts tokens with the model's BPE encoding, falling back
// to the heuristic when no encoding can be loaded.
type TiktokenEstimator struct {
	Model string
	Log   zerolog.Logger
}

func (e TiktokenEstimator) EstimateText(text string) int {
	tkm, err := GetTokenizer(e.Model)
	if err != nil {
		e.Log.Debug().Err(err).Str("model", e.Model).Msg("Falling back to heuristic token estimate")
		return HeuristicEstimator{}.EstimateText(text)
	}
	return len(tkm.Encode(text, nil, nil))
}

// GetTokenizer returns a cached tiktoken encoder for the given model
func GetTokenizer(model string) (*tiktoken.Tiktoken, error) {
	tokenizerCacheMu.RLock()
	if tkm, ok := tokenizerCache[model]; ok {
		tokenizerCacheMu.RUnlock()
		return tkm, nil
	}
	tokenizerCacheMu.RUnlock()

	tokenizerCacheMu.Lock()
	defer tokenizerCacheMu.Unlock()

	// Double-check after acquiring write lock
	if tkm, ok := tokenizerCache[model]; ok {
		return tkm, nil
	}

	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fall back to cl100k_base for unknown models (GPT-4 family)
		tkm, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	tokenizerCache[model] = tkm
	return tkm, nil
}

// EstimateMessages estimates the tokens of a whole message sequence. The
// heuristic estimator counts content only; BPE estimators add the chat
// framing overhead from OpenAI's cookbook.
func EstimateMessages(est Estimator, messages []companion.ProcessedMessage) int {
	if est == nil {
		est = HeuristicEstimator{}
	}
	_, framed := est.(TiktokenEstimator)

	total := 0
	for _, msg := range messages {
		total += est.EstimateText(msg.Content)
		if framed {
			total += tokensPerMessage + est.EstimateText(msg.EffectiveRole())
		}
	}
	if framed && len(messages) > 0 {
		total += 3 // Every reply is primed with <|start|>assistant<|message|>
	}
	return total
}
