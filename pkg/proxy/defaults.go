package proxy

// CorsProxyIO relays the raw page body.
var CorsProxyIO = Descriptor{
	Name:     "corsproxy.io",
	Template: "https://corsproxy.io/?" + PlaceholderEncoded,
}

// AllOriginsRaw relays the raw page body.
var AllOriginsRaw = Descriptor{
	Name:     "allorigins",
	Template: "https://api.allorigins.win/raw?url=" + PlaceholderEncoded,
}

// AllOriginsJSON wraps the page in {"contents": "..."}. Not in the default
// table; add it through configuration when the raw endpoint is unavailable.
var AllOriginsJSON = Descriptor{
	Name:     "allorigins-json",
	Template: "https://api.allorigins.win/get?url=" + PlaceholderEncoded,
	Envelope: "contents",
}

// DefaultDescriptors returns the built-in relays, most reliable first.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{CorsProxyIO, AllOriginsRaw}
}

// DefaultTable returns the built-in relay table.
func DefaultTable() *Table {
	return MustTable(DefaultDescriptors()...)
}
