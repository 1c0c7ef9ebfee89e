package client

import (
	"net/http"
	"strings"

	"github.com/Sternrassler/repolist-client/pkg/model"
)

// relNext is the link relation that continues a listing.
const relNext = "next"

// ParseNextCursor extracts the "next" relation of the Link header.
// A missing header, a missing "next" entry or an unusable URL yields the
// zero cursor, which marks the last page.
//
// Example header:
//
//	<https://api.github.com/repositories?since=369>; rel="next", <https://api.github.com/repositories{?since}>; rel="first"
func ParseNextCursor(header http.Header) model.Cursor {
	for _, value := range header.Values("Link") {
		for _, link := range strings.Split(value, ",") {
			target, rel, ok := splitLink(link)
			if !ok || rel != relNext {
				continue
			}
			cursor, err := model.NewCursor(target)
			if err != nil {
				continue
			}
			return cursor
		}
	}
	return model.Cursor{}
}

// splitLink parses `<url>; rel="name"`. Entries with anything other than
// exactly one parameter are rejected.
func splitLink(link string) (target, rel string, ok bool) {
	parts := strings.Split(link, ";")
	if len(parts) != 2 {
		return "", "", false
	}

	target = strings.TrimSpace(parts[0])
	target = strings.TrimPrefix(target, "<")
	target = strings.TrimSuffix(target, ">")
	if target == "" {
		return "", "", false
	}

	param := strings.TrimSpace(parts[1])
	value, found := strings.CutPrefix(param, "rel=")
	if !found {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	return target, value, true
}
