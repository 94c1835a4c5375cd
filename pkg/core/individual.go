package core

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Individual is one candidate configuration: an ordered gene slice with one
// value per AttributeVariation, the fitness vector assigned by evaluation,
// and an optional raw simulation payload.
//
// An individual with a nil Fitness is unevaluated and must not take part in
// dominance comparisons. Once a fitness has been assigned the individual is
// treated as immutable; genetic operators always produce fresh individuals.
type Individual struct {
	// ID identifies this individual across logs and payload correlation. It
	// is assigned at construction and survives evaluation.
	ID string

	// Genes holds one value per attribute variation, in variation order.
	Genes []float64

	// Fitness is the signed objective vector, nil until evaluation succeeds.
	// Minimization objectives are stored negated so that larger is always
	// better.
	Fitness []float64

	// Payload optionally carries the raw component results the simulator
	// returned for this individual. It is discarded by default to bound
	// memory across long runs.
	Payload []ComponentResult
}

// NewIndividual creates an unevaluated individual owning a copy of genes.
func NewIndividual(genes []float64) *Individual {
	g := make([]float64, len(genes))
	copy(g, genes)
	return &Individual{
		ID:    uuid.New().String(),
		Genes: g,
	}
}

// Evaluated reports whether a fitness vector has been assigned.
func (ind *Individual) Evaluated() bool {
	return ind.Fitness != nil
}

// Fingerprint returns the canonical encoding of the gene tuple, used as the
// memoization key. Two individuals with identical genes share a fingerprint
// regardless of their IDs.
func (ind *Individual) Fingerprint() string {
	return Fingerprint(ind.Genes)
}

// Clone returns a fresh unevaluated individual with the same genes and a new
// identity. Fitness and payload are not carried over.
func (ind *Individual) Clone() *Individual {
	return NewIndividual(ind.Genes)
}

// Fingerprint computes the canonical string encoding of a gene tuple. The
// encoding is deterministic: the shortest decimal representation of each
// gene, space separated, in brackets.
func Fingerprint(genes []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, g := range genes {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(g, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
