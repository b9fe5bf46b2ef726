package metadata

// Action selectors are the authorization keys, one per mutating entry
// point. They are independent capability tokens: granting the bulk
// selector does not imply any field selector, and vice versa.
const (
	SelectorSetMetadata    = "metadata.set"
	SelectorSetName        = "metadata.set_name"
	SelectorSetCategory    = "metadata.set_category"
	SelectorSetDescription = "metadata.set_description"
	SelectorSetHash        = "metadata.set_hash"
	SelectorSetTokenURI    = "metadata.set_token_uri"
)

// CapabilityMetadataResolver is the introspectable capability identifier
// this component advertises.
const CapabilityMetadataResolver = "ipmeta.resolver.v1"

// Selectors lists every mutator selector in declaration order.
func Selectors() []string {
	return []string{
		SelectorSetMetadata,
		SelectorSetName,
		SelectorSetCategory,
		SelectorSetDescription,
		SelectorSetHash,
		SelectorSetTokenURI,
	}
}

// Supports reports whether the given capability identifier is
// implemented by this component.
func Supports(capability string) bool {
	return capability == CapabilityMetadataResolver
}

// KnownSelector reports whether the value names one of the mutator
// selectors.
func KnownSelector(selector string) bool {
	for _, s := range Selectors() {
		if s == selector {
			return true
		}
	}
	return false
}
