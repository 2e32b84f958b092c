package previews

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// GameID identifies a catalog game. Callers send either a JSON number or a
// string; the original kind is preserved when the id is echoed back.
type GameID struct {
	number json.Number
	text   string
}

// NumberGameID returns a numeric game id.
func NumberGameID(n json.Number) GameID {
	return GameID{number: n}
}

// TextGameID returns a string game id.
func TextGameID(s string) GameID {
	return GameID{text: s}
}

// ParseGameID accepts a finite number or a non-empty string (after trimming).
// Values are expected to come from a decoder with UseNumber enabled, but
// plain float64 values are accepted too.
func ParseGameID(v any) (GameID, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return GameID{}, false
		}

		return NumberGameID(t), true
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return GameID{}, false
		}

		return NumberGameID(json.Number(strconv.FormatFloat(t, 'f', -1, 64))), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return GameID{}, false
		}

		return TextGameID(s), true
	default:
		return GameID{}, false
	}
}

func (id GameID) String() string {
	if id.number != "" {
		return id.number.String()
	}

	return id.text
}

// MarshalJSON writes the id back in the JSON kind it arrived in.
func (id GameID) MarshalJSON() ([]byte, error) {
	if id.number != "" {
		return []byte(id.number), nil
	}

	return json.Marshal(id.text)
}

// UnmarshalJSON applies the same rules as ParseGameID.
func (id *GameID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode game id: %w", err)
	}

	parsed, ok := ParseGameID(v)
	if !ok {
		return fmt.Errorf("invalid game id %s", string(data))
	}

	*id = parsed

	return nil
}

// RequestItem is one validated entry of a preview batch.
type RequestItem struct {
	ID        GameID
	SourceURL string
}

// Fields are the values extracted from one listing page. Empty strings mean
// the field was not found.
type Fields struct {
	PosterURL    string
	Description  string
	VideoURL     string
	CanonicalURL string
}

// Empty reports whether none of the user-facing preview fields were found.
// The canonical URL alone does not make a preview.
func (f Fields) Empty() bool {
	return f.PosterURL == "" && f.Description == "" && f.VideoURL == ""
}

// Result is the preview returned for a successfully fetched game.
type Result struct {
	GameID      GameID    `json:"gameId"`
	PosterURL   *string   `json:"posterUrl"`
	Description *string   `json:"description"`
	VideoURL    *string   `json:"videoUrl"`
	SourceURL   string    `json:"sourceUrl"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// Failure records why a game's preview could not be produced.
type Failure struct {
	GameID  GameID `json:"gameId"`
	Message string `json:"message"`
}

func newResult(id GameID, requested string, fields Fields, fetchedAt time.Time) Result {
	source := fields.CanonicalURL
	if source == "" {
		source = requested
	}

	return Result{
		GameID:      id,
		PosterURL:   nullable(fields.PosterURL),
		Description: nullable(fields.Description),
		VideoURL:    nullable(fields.VideoURL),
		SourceURL:   source,
		FetchedAt:   fetchedAt.UTC(),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
