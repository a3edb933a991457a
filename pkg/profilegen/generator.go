// Package profilegen produces the profile/relevance store with a chat model:
// it invents themed profiles, scores each against an organizer's bio, and
// merges the two into the records the annotator ranks.
package profilegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/menta2k/marker-annotator/pkg/client"
	"github.com/menta2k/marker-annotator/pkg/types"
)

// Explanations recorded when a score is unavailable.
const (
	ExplanationNotReturned = "Relevance data not returned by model."
	ExplanationMissing     = "Relevance data missing for this ID."
)

// Sampling temperatures for the two requests.
const (
	ProfileTemperature   = 0.8
	RelevanceTemperature = 0.2
)

var (
	// ErrNoProfiles is returned when a reply contains no usable profile.
	ErrNoProfiles = errors.New("profilegen: model returned no valid profiles")

	// ErrMalformedReply is returned when a reply is not the expected JSON list.
	ErrMalformedReply = errors.New("profilegen: malformed model reply")
)

// Score is the relevance of one profile.
type Score struct {
	ID          string  `json:"id"`
	Relevance   float64 `json:"relevance"`
	Explanation string  `json:"relevance_explanation"`
}

// Generator drives a chat model.
type Generator struct {
	client client.ChatClient
	model  string
	newID  func() string
}

// NewGenerator returns a generator that talks to model through c.
func NewGenerator(c client.ChatClient, model string) *Generator {
	return &Generator{client: c, model: model, newID: uuid.NewString}
}

// GenerateProfiles asks the model for n profiles about theme and assigns
// each a fresh UUID. Malformed items are skipped, so fewer than n profiles
// may come back; none at all is ErrNoProfiles.
func (g *Generator) GenerateProfiles(ctx context.Context, n int, theme string) ([]types.Profile, error) {
	if n <= 0 {
		return nil, fmt.Errorf("profilegen: profile count must be positive, got %d", n)
	}

	reply, err := g.client.Complete(ctx, g.model,
		fmt.Sprintf(ProfilesSystemPrompt, theme, n),
		fmt.Sprintf(ProfilesUserPrompt, n, theme),
		ProfileTemperature)
	if err != nil {
		return nil, fmt.Errorf("profile generation failed: %w", err)
	}

	var items []struct {
		Name  string `json:"name"`
		Title string `json:"title"`
		Bio   string `json:"bio"`
	}
	if err := decodeList(reply, &items); err != nil {
		return nil, err
	}

	profiles := make([]types.Profile, 0, len(items))
	for _, it := range items {
		name, title, bio := strings.TrimSpace(it.Name), strings.TrimSpace(it.Title), strings.TrimSpace(it.Bio)
		if name == "" || title == "" || bio == "" {
			continue
		}
		profiles = append(profiles, types.Profile{ID: g.newID(), Name: name, Title: title, Bio: bio})
	}
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}
	return profiles, nil
}

// PlaceholderProfiles returns n profiles with generated names and stock
// text, for when the model is unavailable.
func (g *Generator) PlaceholderProfiles(n int) []types.Profile {
	profiles := make([]types.Profile, 0, max(0, n))
	for i := 0; i < n; i++ {
		profiles = append(profiles, types.Profile{
			ID:    g.newID(),
			Name:  gofakeit.Name(),
			Title: "Placeholder Title",
			Bio:   fmt.Sprintf("This is a placeholder bio for profile %d.", i+1),
		})
	}
	return profiles
}

// ScoreRelevance asks the model to score every profile against userBio.
// Profiles the reply leaves out get a zero score. Scores for unknown IDs are
// ignored and relevance is clamped to [0, 1].
func (g *Generator) ScoreRelevance(ctx context.Context, userBio string, profiles []types.Profile) ([]Score, error) {
	if len(profiles) == 0 {
		return nil, nil
	}

	type entry struct {
		ID  string `json:"id"`
		Bio string `json:"bio"`
	}
	entries := make([]entry, 0, len(profiles))
	for _, p := range profiles {
		entries = append(entries, entry{ID: p.ID, Bio: p.Bio})
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode profiles: %w", err)
	}

	reply, err := g.client.Complete(ctx, g.model,
		fmt.Sprintf(RelevanceSystemPrompt, userBio),
		fmt.Sprintf(RelevanceUserPrompt, payload),
		RelevanceTemperature)
	if err != nil {
		return nil, fmt.Errorf("relevance scoring failed: %w", err)
	}

	var items []struct {
		ID          string   `json:"id"`
		Relevance   *float64 `json:"relevance"`
		Explanation string   `json:"relevance_explanation"`
	}
	if err := decodeList(reply, &items); err != nil {
		return nil, err
	}

	returned := make(map[string]Score, len(items))
	for _, it := range items {
		if it.ID == "" || it.Relevance == nil {
			continue
		}
		returned[it.ID] = Score{
			ID:          it.ID,
			Relevance:   min(1, max(0, *it.Relevance)),
			Explanation: strings.TrimSpace(it.Explanation),
		}
	}

	scores := make([]Score, 0, len(profiles))
	for _, p := range profiles {
		s, ok := returned[p.ID]
		if !ok {
			s = Score{ID: p.ID, Explanation: ExplanationNotReturned}
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// PlaceholderScores gives every profile a zero score with reason as the
// explanation.
func PlaceholderScores(profiles []types.Profile, reason string) []Score {
	scores := make([]Score, 0, len(profiles))
	for _, p := range profiles {
		scores = append(scores, Score{ID: p.ID, Explanation: reason})
	}
	return scores
}

// Merge copies each score onto its profile. Profiles without a score get
// zero relevance and ExplanationMissing.
func Merge(base []types.Profile, scores []Score) []types.Profile {
	byID := make(map[string]Score, len(scores))
	for _, s := range scores {
		byID[s.ID] = s
	}
	merged := make([]types.Profile, 0, len(base))
	for _, p := range base {
		if s, ok := byID[p.ID]; ok {
			p.Relevance = s.Relevance
			p.Explanation = s.Explanation
			if p.Explanation == "" {
				p.Explanation = "N/A"
			}
		} else {
			p.Relevance = 0
			p.Explanation = ExplanationMissing
		}
		merged = append(merged, p)
	}
	return merged
}

// decodeList parses a model reply into a JSON list. A single object wrapping
// one list, such as {"profiles": [...]}, is unwrapped.
func decodeList(reply string, out any) error {
	raw := sanitizeModelJSON(reply)
	if strings.HasPrefix(raw, "{") {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &wrapper); err == nil {
			for _, v := range wrapper {
				if trimmed := strings.TrimSpace(string(v)); strings.HasPrefix(trimmed, "[") {
					raw = trimmed
					break
				}
			}
		}
	}
	if !strings.HasPrefix(raw, "[") {
		return fmt.Errorf("%w: no JSON list found", ErrMalformedReply)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}
