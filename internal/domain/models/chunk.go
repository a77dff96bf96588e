package models

// Chunk is one batch of header-tagged rows delivered by a data source.
// Every chunk of a load repeats the header it was read with.
type Chunk struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}
