package story

import (
	"hash/fnv"
	"strconv"
)

// hashString produces a short stable digest rendered in base 36.
func hashString(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// ContentHash digests the item's textual content for last-resort duplicate
// detection.
func ContentHash(title, body, excerpt string) string {
	return hashString(title + body + excerpt)
}

// IdentityKey derives the stable identity of a raw item. The feed GUID is the
// most reliable handle when present, the canonical URL next, and the content
// hash covers feeds with no stable identifiers at all.
func IdentityKey(raw RawItem) string {
	if raw.GUID != "" {
		return "feed-" + hashString(raw.GUID)
	}
	if raw.SourceURL != "" {
		return "url-" + hashString(raw.SourceURL)
	}
	return "content-" + ContentHash(raw.Title, raw.Body, "")
}
