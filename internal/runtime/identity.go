package runtime

// Identity is the stable cluster-wide address of one virtual actor: an
// entity-kind tag plus a key (a GUID or a composite key with an embedded
// partition, e.g. "character/season"). Identities are never destroyed; the
// instance behind one is activated on first call and may be deactivated and
// later reactivated on any host.
type Identity struct {
	Kind string
	Key  string
}

func (id Identity) String() string {
	return id.Kind + "/" + id.Key
}
