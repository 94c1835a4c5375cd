package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/gridwright/evosize/pkg/core"
)

// KeyGenerator generates cache keys for evaluation outcomes.
type KeyGenerator struct {
	// Prefix for all cache keys (e.g., "evosize_")
	prefix string
}

// NewKeyGenerator creates a new cache key generator.
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "evosize_"
	}
	return &KeyGenerator{prefix: prefix}
}

// GenerateKey creates a deterministic cache key for one evaluated gene tuple.
// The space digest scopes the key: identical gene tuples evaluated under
// different models, variations, or objectives never share an entry. The
// digest stays visible in the key for debuggability; the hash covers both
// digest and fingerprint.
func (g *KeyGenerator) GenerateKey(spaceID string, fingerprint string) string {
	keyData := fmt.Sprintf("%s|%s", spaceID, fingerprint)

	h := sha256.New()
	h.Write([]byte(keyData))
	hash := hex.EncodeToString(h.Sum(nil))

	return fmt.Sprintf("%s%s_%s", g.prefix, spaceID, hash[:16])
}

// InvalidatePattern generates a glob pattern matching all keys of one search
// space, or of every space when spaceID is empty.
func (g *KeyGenerator) InvalidatePattern(spaceID string) string {
	if spaceID == "" {
		return g.prefix + "*"
	}
	return fmt.Sprintf("%s%s_*", g.prefix, spaceID)
}

// ModelDigest derives a stable hash of a base model. Entities and fields are
// visited in sorted order so the digest does not depend on map iteration.
func ModelDigest(model core.Model) string {
	h := sha256.New()

	names := make([]string, 0, len(model))
	for name := range model {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entity := model[name]
		fields := make([]string, 0, len(entity))
		for f := range entity {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		fmt.Fprintf(h, "%s{", name)
		for _, f := range fields {
			// fmt prints nested maps in sorted key order, keeping the
			// digest deterministic for structured field values too
			fmt.Fprintf(h, "%s=%v;", f, entity[f])
		}
		fmt.Fprint(h, "}")
	}

	return hex.EncodeToString(h.Sum(nil))[:16]
}

// SpaceDigest derives a stable identifier for everything that gives a gene
// tuple its meaning: the base model, the attribute variations indexing the
// genes, the objective set producing the signed fitness vector, and the
// zero-pruning policy. Cached outcomes are only reusable when all of these
// match.
func SpaceDigest(model core.Model, variations []core.AttributeVariation, objectives []core.ObjectiveSpec, ignoreZero bool) string {
	h := sha256.New()

	fmt.Fprintf(h, "model:%s|", ModelDigest(model))
	for _, v := range variations {
		fmt.Fprintf(h, "%s.%s:%g:%g:%g;", v.TargetEntity, v.TargetField, v.ValMin, v.ValMax, v.ValStep)
	}
	fmt.Fprint(h, "|")
	for _, o := range objectives {
		fmt.Fprintf(h, "%s:%g;", o.Name, o.Sign)
	}
	fmt.Fprintf(h, "|zero:%t", ignoreZero)

	return hex.EncodeToString(h.Sum(nil))[:16]
}
