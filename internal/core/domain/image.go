package domain

import (
	"net/url"
	"strings"
)

// IsValidImageURL accepts only fully-qualified http(s) URLs that are not
// placeholders.
func IsValidImageURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(strings.ToLower(raw), "placeholder") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ImageBase strips the query and fragment so two URLs that differ only in
// metadata parameters compare equal.
func ImageBase(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// ImageSet tracks base image URLs already shown by some guide.
type ImageSet struct {
	bases map[string]struct{}
}

func NewImageSet(urls ...string) *ImageSet {
	s := &ImageSet{bases: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

func (s *ImageSet) Add(raw string) {
	base := ImageBase(raw)
	if base == "" {
		return
	}
	s.bases[base] = struct{}{}
}

func (s *ImageSet) Has(raw string) bool {
	_, ok := s.bases[ImageBase(raw)]
	return ok
}

func (s *ImageSet) Len() int {
	return len(s.bases)
}
