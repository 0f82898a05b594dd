package assessment

import (
	"math/rand"

	"github.com/sbs-helper/certification-backend/internal/models"
)

// ShuffleOptions draws a fresh random permutation of a question's four
// options. It returns the option texts in display order (display label A
// first) and the canonical labels behind each display slot. Re-presenting
// the same question draws a new independent permutation; nothing is seeded
// or persisted beyond the attempt row.
func ShuffleOptions(rng *rand.Rand, q *models.Question) (options [4]string, displayOrder [4]string) {
	perm := rng.Perm(4)
	for display, canonical := range perm {
		label := models.OptionLabels[canonical]
		displayOrder[display] = label
		options[display] = q.Option(label)
	}
	return options, displayOrder
}

// DisplayLabelFor returns the display label under which a canonical label
// was shown, or "" if the canonical label is not in the mapping.
func DisplayLabelFor(displayOrder [4]string, canonical string) string {
	for i, label := range displayOrder {
		if label == canonical {
			return models.OptionLabels[i]
		}
	}
	return ""
}
