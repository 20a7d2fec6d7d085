package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// tokenRe matches runs of two or more word characters. Single-character
// tokens are not part of the vocabulary.
var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Exemplar is one labelled training text.
type Exemplar struct {
	Text  string
	Label RiskLabel
}

// DefaultCorpus returns the built-in training corpus. The first five entries
// are the exemplars the risk model has always shipped with; the rest cover
// tsunami, volcanic, and heat advisory phrasing.
func DefaultCorpus() []Exemplar {
	return []Exemplar{
		{Text: "Minor flooding expected in low-lying areas", Label: RiskLow},
		{Text: "Severe hurricane approaching with high winds", Label: RiskSevere},
		{Text: "Moderate earthquake with potential damage", Label: RiskModerate},
		{Text: "High wind warning with power outages", Label: RiskSevere},
		{Text: "Flash flood alert with evacuation orders", Label: RiskSevere},
		{Text: "Tsunami warning issued for coastal communities", Label: RiskSevere},
		{Text: "Volcanic ash advisory with possible flight disruptions", Label: RiskModerate},
		{Text: "Heat advisory in effect for inland valleys", Label: RiskLow},
	}
}

// Classifier is a multinomial naive Bayes model over a bag-of-words
// vocabulary. It is immutable after construction and safe for concurrent use.
type Classifier struct {
	vocab map[string]int

	// present marks labels with at least one exemplar; only those can be predicted.
	present map[RiskLabel]bool
	// logPrior and logLikelihood are indexed by label; logLikelihood[label][token].
	logPrior      map[RiskLabel]float64
	logLikelihood map[RiskLabel][]float64
}

// NewClassifier builds the vocabulary from corpus and fits the model once.
func NewClassifier(corpus []Exemplar) (*Classifier, error) {
	if len(corpus) == 0 {
		return nil, errors.New("classifier corpus is empty")
	}

	vocab := make(map[string]int)
	docs := make([][]string, len(corpus))
	for i, ex := range corpus {
		if !ex.Label.Valid() {
			return nil, fmt.Errorf("corpus exemplar %d: invalid label %d", i, int(ex.Label))
		}
		docs[i] = tokenize(ex.Text)
		for _, tok := range docs[i] {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = len(vocab)
			}
		}
	}

	counts := make(map[RiskLabel][]float64, len(RiskLabels))
	docsPerLabel := make(map[RiskLabel]int, len(RiskLabels))
	for _, label := range RiskLabels {
		counts[label] = make([]float64, len(vocab))
	}
	for i, ex := range corpus {
		docsPerLabel[ex.Label]++
		for _, tok := range docs[i] {
			counts[ex.Label][vocab[tok]]++
		}
	}

	c := &Classifier{
		vocab:         vocab,
		present:       make(map[RiskLabel]bool, len(RiskLabels)),
		logPrior:      make(map[RiskLabel]float64, len(RiskLabels)),
		logLikelihood: make(map[RiskLabel][]float64, len(RiskLabels)),
	}

	for _, label := range RiskLabels {
		n := docsPerLabel[label]
		if n == 0 {
			continue
		}
		c.present[label] = true
		c.logPrior[label] = math.Log(float64(n) / float64(len(corpus)))

		// Laplace smoothing: (count + 1) / (total + |V|).
		var total float64
		for _, v := range counts[label] {
			total += v
		}
		denom := math.Log(total + float64(len(vocab)))
		ll := make([]float64, len(vocab))
		for j, v := range counts[label] {
			ll[j] = math.Log(v+1) - denom
		}
		c.logLikelihood[label] = ll
	}

	return c, nil
}

// MustNewClassifier is like NewClassifier but panics on error. It is meant for
// package-level initialization with a known-good corpus.
func MustNewClassifier(corpus []Exemplar) *Classifier {
	c, err := NewClassifier(corpus)
	if err != nil {
		panic(err)
	}
	return c
}

// VocabularySize returns the number of distinct corpus tokens.
func (c *Classifier) VocabularySize() int {
	return len(c.vocab)
}

// Classify predicts the risk label of description. Tokens outside the corpus
// vocabulary are ignored, so an empty or unrecognized description falls back
// to the class priors.
func (c *Classifier) Classify(description string) Classification {
	counts := make([]float64, len(c.vocab))
	for _, tok := range tokenize(description) {
		if j, ok := c.vocab[tok]; ok {
			counts[j]++
		}
	}

	joint := make(map[RiskLabel]float64, len(RiskLabels))
	best := RiskLabel(0)
	for _, label := range RiskLabels {
		if !c.present[label] {
			continue
		}
		score := c.logPrior[label]
		ll := c.logLikelihood[label]
		for j, n := range counts {
			if n != 0 {
				score += n * ll[j]
			}
		}
		joint[label] = score
		// Strict comparison keeps the lowest label on ties.
		if best == 0 || score > joint[best] {
			best = label
		}
	}

	return Classification{Label: best, Probabilities: posterior(joint)}
}

// posterior exponentiates and renormalizes log-space scores. Labels absent from
// joint get probability zero. Sums run in label order so results are
// bit-for-bit repeatable.
func posterior(joint map[RiskLabel]float64) map[RiskLabel]float64 {
	maxScore := math.Inf(-1)
	for _, label := range RiskLabels {
		if s, ok := joint[label]; ok {
			maxScore = math.Max(maxScore, s)
		}
	}

	var sum float64
	for _, label := range RiskLabels {
		if s, ok := joint[label]; ok {
			sum += math.Exp(s - maxScore)
		}
	}

	probs := make(map[RiskLabel]float64, len(RiskLabels))
	for _, label := range RiskLabels {
		s, ok := joint[label]
		if !ok {
			probs[label] = 0
			continue
		}
		probs[label] = math.Exp(s-maxScore) / sum
	}
	return probs
}

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}
