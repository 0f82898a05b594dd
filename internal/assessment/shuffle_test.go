package assessment

import (
	"math/rand"
	"testing"

	"github.com/sbs-helper/certification-backend/internal/models"
)

func shuffleTestQuestion() *models.Question {
	return &models.Question{
		ID:            1,
		Text:          "Which terminal should the cashier use?",
		OptionA:       "first",
		OptionB:       "second",
		OptionC:       "third",
		OptionD:       "fourth",
		CorrectOption: "B",
		Difficulty:    models.DifficultyEasy,
	}
}

// Resolving a chosen display label back through the mapping must recover the
// canonical label for every permutation the shuffle can draw.
func TestShuffleRoundTrip(t *testing.T) {
	q := shuffleTestQuestion()

	for seed := int64(0); seed < 100; seed++ {
		rng := rand.New(rand.NewSource(seed))
		options, displayOrder := ShuffleOptions(rng, q)

		seen := map[string]bool{}
		for i, canonical := range displayOrder {
			if !seen[canonical] {
				seen[canonical] = true
			} else {
				t.Fatalf("seed %d: canonical label %s displayed twice", seed, canonical)
			}
			if options[i] != q.Option(canonical) {
				t.Errorf("seed %d: display slot %d shows %q, want %q", seed, i, options[i], q.Option(canonical))
			}
		}
		if len(seen) != 4 {
			t.Fatalf("seed %d: display order %v is not a permutation", seed, displayOrder)
		}

		// The user picks the slot showing the correct option.
		display := DisplayLabelFor(displayOrder, q.CorrectOption)
		if display == "" {
			t.Fatalf("seed %d: correct option missing from display order %v", seed, displayOrder)
		}
		aq := models.AttemptQuestion{DisplayOrder: displayOrder}
		if got := aq.ResolveDisplayLabel(display); got != q.CorrectOption {
			t.Errorf("seed %d: resolved %s to %s, want %s", seed, display, got, q.CorrectOption)
		}
	}
}

// Re-presenting the same question draws fresh permutations; one rng stream
// does not keep producing the same display order.
func TestShuffleNotRepeating(t *testing.T) {
	q := shuffleTestQuestion()
	rng := rand.New(rand.NewSource(42))

	orders := map[[4]string]bool{}
	for i := 0; i < 50; i++ {
		_, displayOrder := ShuffleOptions(rng, q)
		orders[displayOrder] = true
	}
	if len(orders) < 2 {
		t.Errorf("50 shuffles produced %d distinct orders, want several", len(orders))
	}
}

func TestDisplayLabelForUnknown(t *testing.T) {
	if got := DisplayLabelFor([4]string{"A", "B", "C", "D"}, "E"); got != "" {
		t.Errorf("DisplayLabelFor(unknown) = %q, want empty", got)
	}
}

func TestResolveDisplayLabelUnknown(t *testing.T) {
	aq := models.AttemptQuestion{DisplayOrder: [4]string{"C", "A", "D", "B"}}
	if got := aq.ResolveDisplayLabel("X"); got != "" {
		t.Errorf("ResolveDisplayLabel(X) = %q, want empty", got)
	}
}
