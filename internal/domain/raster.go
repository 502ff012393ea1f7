package domain

// BandInfo describes one band and its overview pyramid.
type BandInfo struct {
	Index     int    `json:"index"` // 1-based.
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Overviews []Size `json:"overviews"`
}

// RasterInfo summarizes an opened raster.
type RasterInfo struct {
	ID    string     `json:"id"`
	Bands []BandInfo `json:"bands"`
}
