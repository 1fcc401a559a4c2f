package lidarr

import "encoding/json"

// Artist is a Lidarr artist resource. Lidarr expects resources to round
// trip: lookup results POST back with every field intact, and album
// updates PUT the whole object. The raw map keeps the fields this
// client has no use for.
type Artist struct {
	ID              int64  `json:"id"`
	ArtistName      string `json:"artistName"`
	ForeignArtistID string `json:"foreignArtistId"`
	Monitored       bool   `json:"monitored"`

	raw map[string]any
}

func (a *Artist) UnmarshalJSON(data []byte) error {
	type plain Artist
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	return json.Unmarshal(data, &a.raw)
}

func (a *Artist) payload() map[string]any {
	payload := make(map[string]any, len(a.raw)+4)
	for k, v := range a.raw {
		payload[k] = v
	}
	if a.ID != 0 {
		payload["id"] = a.ID
	}
	if a.ArtistName != "" {
		payload["artistName"] = a.ArtistName
	}
	if a.ForeignArtistID != "" {
		payload["foreignArtistId"] = a.ForeignArtistID
	}
	payload["monitored"] = a.Monitored
	return payload
}

// Album is a Lidarr album resource, raw fields retained for round trips.
type Album struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	ForeignAlbumID string `json:"foreignAlbumId"`
	Monitored      bool   `json:"monitored"`
	ArtistID       int64  `json:"artistId"`

	raw map[string]any
}

func (a *Album) UnmarshalJSON(data []byte) error {
	type plain Album
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	return json.Unmarshal(data, &a.raw)
}

func (a *Album) payload() map[string]any {
	payload := make(map[string]any, len(a.raw)+5)
	for k, v := range a.raw {
		payload[k] = v
	}
	if a.ID != 0 {
		payload["id"] = a.ID
	}
	if a.Title != "" {
		payload["title"] = a.Title
	}
	if a.ForeignAlbumID != "" {
		payload["foreignAlbumId"] = a.ForeignAlbumID
	}
	if a.ArtistID != 0 {
		payload["artistId"] = a.ArtistID
	}
	payload["monitored"] = a.Monitored
	return payload
}
