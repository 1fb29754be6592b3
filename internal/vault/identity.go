package vault

import "strings"

// Separator joins id and display name in a stored location.
const Separator = "__"

// EncodeLocation returns the storage location of the file with the given id
// and display name.
func EncodeLocation(id, name string) string {
	return id + Separator + name
}

// DecodeLocation splits a stored location at the first Separator. Locations
// that do not carry both an id and a name are foreign content and use the
// whole location as id and name.
func DecodeLocation(loc string) (id, name string) {
	id, name, ok := strings.Cut(loc, Separator)
	if !ok || id == "" || name == "" {
		return loc, loc
	}
	return id, name
}
