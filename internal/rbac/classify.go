package rbac

import "strings"

// ClassifyCapability maps a route URI onto one capability letter:
// C(reate), R(ead), U(pdate) or D(elete). Classification is substring
// based on the URI, not on the HTTP method — routes are named
// create/list/update/delete by convention and older clients depend on
// this exact behavior. Keep any stricter method-based classifier behind
// this function.
func ClassifyCapability(uri string) string {
	uri = strings.ToLower(uri)
	switch {
	case strings.Contains(uri, "create"):
		return "C"
	case strings.Contains(uri, "list"):
		return "R"
	case strings.Contains(uri, "update"):
		return "U"
	case strings.Contains(uri, "delete"):
		return "D"
	default:
		return ""
	}
}

// EntityFromURI derives the entity name from a route URI: the first path
// segment after the platform prefix. "/admin/product/create" -> "product".
func EntityFromURI(uri string) string {
	parts := strings.Split(strings.Trim(strings.ToLower(uri), "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	switch parts[0] {
	case "admin", "device", "client":
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return ""
	}
	// Auth endpoints are not entities.
	if parts[0] == "auth" {
		return ""
	}
	return parts[0]
}
