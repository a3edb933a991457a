package types

import "github.com/menta2k/marker-annotator/pkg/geometry"

// Detection is one decoded marker found in an image
type Detection struct {
	ID  string        `json:"id"`
	Box geometry.Rect `json:"box"`
}

// Profile is the identity a marker ID resolves to, with its relevance score
type Profile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title,omitempty"`
	Bio         string  `json:"bio,omitempty"`
	Relevance   float64 `json:"relevance"`
	Explanation string  `json:"relevance_explanation,omitempty"`
}

// RankedProfile is a resolved profile together with the marker that produced it
type RankedProfile struct {
	Profile
	Marker geometry.Rect `json:"marker"`
	// Order is the marker's index in detection order, used to break score ties
	Order int `json:"order"`
}

// EncodeOptions controls how output images are written
type EncodeOptions struct {
	Quality   int
	Lossless  bool
	Extension string
}
