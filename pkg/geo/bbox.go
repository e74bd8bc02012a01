package geo

// BBox is a closed longitude/latitude rectangle.
// MinLng/MaxLng are the x bounds, MinLat/MaxLat the y bounds.
type BBox struct {
	MinLng, MaxLng float64
	MinLat, MaxLat float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point lies inside the box. All four edges are
// inclusive.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
