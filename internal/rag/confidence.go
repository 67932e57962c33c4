package rag

// Classifier maps a retrieved score distribution to a confidence tier using
// fixed thresholds. Threshold ordering (High > Medium) is validated at
// configuration load, before a Classifier is ever constructed.
type Classifier struct {
	// High is the minimum top score for HIGH confidence.
	High float64

	// Medium is the minimum top score for MEDIUM confidence.
	Medium float64
}

// Classify derives the tier from the passage sequence. Pure function of the
// scores: no passages means LOW, otherwise only the top-ranked score decides.
// Lower-ranked scores never influence the tier.
func (c Classifier) Classify(passages []Passage) Confidence {
	if len(passages) == 0 {
		return ConfidenceLow
	}

	switch top := passages[0].Score; {
	case top >= c.High:
		return ConfidenceHigh
	case top >= c.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
