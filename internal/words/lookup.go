// internal/words/lookup.go
//
// Best-effort external word lookup.
//
// The endpoint is configured as a URL template containing "{length}", e.g.
//   https://random-word-api.herokuapp.com/word?length={length}&number=50
// and must answer with a JSON array of either strings or objects carrying a
// "word" field. Candidates are normalized like the static lists and one is
// picked at random.
//
// Any failure (transport, status, payload, no usable candidate, timeout) is
// logged at debug level and answered from the fallback source instead.

package words

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// maxLookupBody caps how much of a lookup response is read.
const maxLookupBody = 1 << 20

// Lookup fetches candidate words over HTTP and falls back on any error.
type Lookup struct {
	URL      string
	Client   *http.Client
	Fallback Source
}

// NewLookup constructs a Lookup with its own bounded HTTP client.
func NewLookup(url string, timeout time.Duration, fallback Source) *Lookup {
	return &Lookup{
		URL: url,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Fallback: fallback,
	}
}

// Word returns a looked-up word, or the fallback's word on failure.
func (l *Lookup) Word(ctx context.Context, length int) string {
	w, err := l.fetch(ctx, length)
	if err != nil {
		log.Debug().Err(err).Int("length", length).Msg("word lookup failed, using fallback")
		return l.Fallback.Word(ctx, length)
	}
	return w
}

func (l *Lookup) fetch(ctx context.Context, length int) (string, error) {
	if l.URL == "" {
		return "", errors.New("lookup disabled")
	}
	url := strings.ReplaceAll(l.URL, "{length}", strconv.Itoa(length))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	raw, err := parseCandidates(body)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	candidates := normalize(raw, length)
	if len(candidates) == 0 {
		return "", errors.New("no candidates")
	}
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(candidates))))
	return candidates[nBig.Int64()], nil
}

// parseCandidates accepts ["word", ...] or [{"word": "..."}, ...].
func parseCandidates(body []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Word string `json:"word"`
		}
		if err := json.Unmarshal(it, &obj); err == nil && obj.Word != "" {
			out = append(out, obj.Word)
		}
	}
	return out, nil
}
