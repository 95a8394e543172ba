package reconcile

// Curated digests that must never be uploaded.
var defaultKnownBad = []string{
	// IADS May 2024: a better copy was provided by the lecturer and uploaded by hand.
	"024607a87ae1691d0e92486ec5ee844949109ab93fbecfb680a8980ea59eab4e",
	// Computer Security December 2023: the level 11 paper is identical to the UG one.
	"b4a342506676f77aca96d5585fbde572799be567abeaaed18332b172c4a888e1",
}

// KnownBadSet is a read-only set of fingerprints rejected regardless of category.
type KnownBadSet struct {
	set map[Fingerprint]struct{}
}

// NewKnownBadSet builds a set from fingerprints.
func NewKnownBadSet(fps ...Fingerprint) *KnownBadSet {
	s := &KnownBadSet{set: make(map[Fingerprint]struct{}, len(fps))}
	for _, fp := range fps {
		s.set[fp] = struct{}{}
	}
	return s
}

// DefaultKnownBadSet returns the curated list plus any extra hex digests.
func DefaultKnownBadSet(extraHex ...string) (*KnownBadSet, error) {
	fps := make([]Fingerprint, 0, len(defaultKnownBad)+len(extraHex))
	for _, h := range defaultKnownBad {
		fps = append(fps, MustParseFingerprint(h))
	}
	for _, h := range extraHex {
		if h == "" {
			continue
		}
		fp, err := ParseFingerprint(h)
		if err != nil {
			return nil, err
		}
		fps = append(fps, fp)
	}
	return NewKnownBadSet(fps...), nil
}

// Contains reports whether fp is known bad. A nil set contains nothing.
func (s *KnownBadSet) Contains(fp Fingerprint) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[fp]
	return ok
}

// Len returns the number of known-bad fingerprints.
func (s *KnownBadSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.set)
}
