package profilegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/menta2k/marker-annotator/pkg/types"
)

type fakeClient struct {
	reply       string
	err         error
	system      string
	user        string
	temperature float64
}

func (f *fakeClient) Complete(_ context.Context, _, system, user string, temperature float64) (string, error) {
	f.system, f.user, f.temperature = system, user, temperature
	return f.reply, f.err
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestGenerator(c *fakeClient) *Generator {
	g := NewGenerator(c, "test-model")
	g.newID = sequentialIDs()
	return g
}

func TestGenerateProfiles(t *testing.T) {
	c := &fakeClient{reply: "```json\n[\n" +
		`{"name": "Eleanor Vance", "title": "Professor of Computer Science", "bio": "Researches distributed systems."},` + "\n" +
		`{"name": "", "title": "Missing name", "bio": "Skipped."},` + "\n" +
		`// a stray comment` + "\n" +
		`{"name": "Michael Lee", "title": "Undergraduate Student", "bio": "Seeks a data internship."},` + "\n" +
		"]\n```"}
	g := newTestGenerator(c)

	profiles, err := g.GenerateProfiles(context.Background(), 3, "tech career fair")
	if err != nil {
		t.Fatalf("GenerateProfiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 valid profiles, got %d", len(profiles))
	}
	if profiles[0].ID != "id-1" || profiles[1].Name != "Michael Lee" {
		t.Errorf("unexpected profiles %+v", profiles)
	}
	if !strings.Contains(c.system, "tech career fair") || !strings.Contains(c.system, "exactly 3 objects") {
		t.Errorf("system prompt missing theme or count: %q", c.system)
	}
	if c.temperature != ProfileTemperature {
		t.Errorf("temperature = %v", c.temperature)
	}
}

func TestGenerateProfilesWrappedObject(t *testing.T) {
	c := &fakeClient{reply: `Here you go: {"profiles": [{"name": "A", "title": "B", "bio": "C"}]}`}
	profiles, err := newTestGenerator(c).GenerateProfiles(context.Background(), 1, "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 1 || profiles[0].Bio != "C" {
		t.Errorf("unexpected profiles %+v", profiles)
	}
}

func TestGenerateProfilesErrors(t *testing.T) {
	tests := []struct {
		name string
		c    *fakeClient
		n    int
		want error
	}{
		{"client failure", &fakeClient{err: errors.New("connection refused")}, 2, nil},
		{"not json", &fakeClient{reply: "I cannot help with that."}, 2, ErrMalformedReply},
		{"empty list", &fakeClient{reply: "[]"}, 2, ErrNoProfiles},
		{"bad count", &fakeClient{}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestGenerator(tt.c).GenerateProfiles(context.Background(), tt.n, "theme")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPlaceholderProfiles(t *testing.T) {
	profiles := newTestGenerator(&fakeClient{}).PlaceholderProfiles(3)
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}
	for i, p := range profiles {
		if p.ID != fmt.Sprintf("id-%d", i+1) || p.Name == "" || p.Bio == "" {
			t.Errorf("incomplete placeholder %+v", p)
		}
	}
}

func TestNewGeneratorUsesUUIDs(t *testing.T) {
	g := NewGenerator(&fakeClient{}, "m")
	a, b := g.PlaceholderProfiles(1)[0].ID, g.PlaceholderProfiles(1)[0].ID
	if len(a) != 36 || a == b {
		t.Errorf("expected distinct UUIDs, got %q and %q", a, b)
	}
}

func TestScoreRelevance(t *testing.T) {
	profiles := []types.Profile{
		{ID: "a", Bio: "Machine learning researcher."},
		{ID: "b", Bio: "Investment banker."},
		{ID: "c", Bio: "Event staff."},
	}
	c := &fakeClient{reply: `[
		{"id": "a", "relevance": 0.92, "relevance_explanation": "Shares ML focus."},
		{"id": "b", "relevance": 1.4, "relevance_explanation": "Overconfident."},
		{"id": "zzz", "relevance": 0.5, "relevance_explanation": "Unknown."},
		{"id": "c", "relevance_explanation": "No score."},
	]`}

	scores, err := newTestGenerator(c).ScoreRelevance(context.Background(), "CS student seeking internships", profiles)
	if err != nil {
		t.Fatalf("ScoreRelevance failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected one score per profile, got %d", len(scores))
	}
	if scores[0].Relevance != 0.92 || scores[0].Explanation != "Shares ML focus." {
		t.Errorf("score a = %+v", scores[0])
	}
	if scores[1].Relevance != 1 {
		t.Errorf("score b not clamped: %v", scores[1].Relevance)
	}
	if scores[2].Relevance != 0 || scores[2].Explanation != ExplanationNotReturned {
		t.Errorf("score c = %+v", scores[2])
	}
	if !strings.Contains(c.system, "CS student seeking internships") || !strings.Contains(c.user, `"id": "b"`) {
		t.Error("prompts missing organizer bio or profiles")
	}
	if c.temperature != RelevanceTemperature {
		t.Errorf("temperature = %v", c.temperature)
	}
}

func TestScoreRelevanceFailure(t *testing.T) {
	profiles := []types.Profile{{ID: "a"}}
	_, err := newTestGenerator(&fakeClient{reply: "{}"}).ScoreRelevance(context.Background(), "bio", profiles)
	if !errors.Is(err, ErrMalformedReply) {
		t.Errorf("expected ErrMalformedReply, got %v", err)
	}

	placeholders := PlaceholderScores(profiles, "parsing failed")
	if len(placeholders) != 1 || placeholders[0].Relevance != 0 || placeholders[0].Explanation != "parsing failed" {
		t.Errorf("unexpected placeholders %+v", placeholders)
	}
}

func TestMerge(t *testing.T) {
	base := []types.Profile{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	merged := Merge(base, []Score{{ID: "a", Relevance: 0.7, Explanation: "Good fit."}})

	if merged[0].Relevance != 0.7 || merged[0].Explanation != "Good fit." || merged[0].Name != "A" {
		t.Errorf("merged a = %+v", merged[0])
	}
	if merged[1].Relevance != 0 || merged[1].Explanation != ExplanationMissing {
		t.Errorf("merged b = %+v", merged[1])
	}
	if base[0].Relevance != 0 {
		t.Error("Merge mutated its input")
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced list", "```json\n[1, 2,]\n```", "[1, 2]"},
		{"prose around object", `Sure! {"a": 1} Hope this helps.`, `{"a": 1}`},
		{"block comment", "[/* note */ 1]", "[ 1]"},
		{"list before object", `[{"a": 1}]`, `[{"a": 1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeModelJSON(tt.in); got != tt.want {
				t.Errorf("sanitizeModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
