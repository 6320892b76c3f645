package models

import "time"

// ImageCacheEntry maps a normalized meal title to a previously generated
// illustration URL. Entries are never evicted; the first successful writer
// for a key wins and duplicate writes under races are tolerated.
type ImageCacheEntry struct {
	Key       string    `db:"cache_key" json:"key"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
