package result

import "encoding/json"

// Image is a single ranked image hit.
type Image struct {
	rank int
	url  string
}

// NewImage creates a ranked image.
func NewImage(rank int, url string) Image {
	return Image{rank: rank, url: url}
}

// Rank returns the 1-based position.
func (i Image) Rank() int { return i.rank }

// URL returns the image source.
func (i Image) URL() string { return i.url }

// Images is the validated body of an image search.
type Images struct {
	urls []string
}

// NewImages creates an image search result. The URL order is the ranking.
func NewImages(urls []string) Images {
	return Images{urls: urls}
}

// URLs returns the image sources in rank order.
func (r Images) URLs() []string { return r.urls }

// Ranked returns the images with positional ranks (index + 1).
func (r Images) Ranked() []Image {
	out := make([]Image, len(r.urls))
	for i, u := range r.urls {
		out[i] = NewImage(i+1, u)
	}
	return out
}

// Knowledge is the body of a knowledge-base search. Any JSON value is accepted.
type Knowledge struct {
	raw json.RawMessage
}

// NewKnowledge wraps a raw JSON value.
func NewKnowledge(raw json.RawMessage) Knowledge {
	return Knowledge{raw: raw}
}

// Raw returns the JSON value as received.
func (k Knowledge) Raw() json.RawMessage { return k.raw }
