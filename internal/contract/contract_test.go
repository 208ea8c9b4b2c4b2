package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_WireFormat(t *testing.T) {
	b, err := json.Marshal([]Filter{FilterBDRip, FilterAllEpisodes})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"BDRip"},{"type":"AllEpisodes"}]`, string(b))

	var got []Filter
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"DDP"},{"type":"HEVC"}]`), &got))
	assert.Equal(t, []Filter{FilterDDP, FilterHEVC}, got)
}

func TestFilter_RejectsUnknown(t *testing.T) {
	var f Filter
	assert.Error(t, json.Unmarshal([]byte(`{"type":"Remux"}`), &f))
	_, err := json.Marshal(Filter("Remux"))
	assert.Error(t, err)
}

func TestFilter_Labels(t *testing.T) {
	assert.Equal(t, "DDP / AC3 / E-AC3", FilterDDP.Label())
	assert.Equal(t, "All Episodes", FilterAllEpisodes.Label())
	assert.Len(t, Filters(), 6)

	f, err := ParseFilter("bdrip")
	require.NoError(t, err)
	assert.Equal(t, FilterBDRip, f)
	_, err = ParseFilter("dvd")
	assert.Error(t, err)
}

func TestTorrentRequest_WantsFull(t *testing.T) {
	assert.False(t, TorrentRequest{Filter: []Filter{FilterFLAC}}.WantsFull())
	assert.True(t, TorrentRequest{Filter: []Filter{FilterFLAC, FilterAllEpisodes}}.WantsFull())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/users/remove_anime/52991", RemoveAnimePath(52991))
	assert.Equal(t, "/anime/21/comment", CommentsPath(21))
}

func TestUserResponse_Decode(t *testing.T) {
	raw := `{"username":"mikasa","uuid":3,"fav_anime":[{"anime_id":1,"anime_img":null,"anime_ttl_en":"Cowboy Bebop","anime_ttl_jp":"カウボーイビバップ"}]}`
	var u UserResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	assert.EqualValues(t, 3, u.UUID)
	require.Len(t, u.FavAnime, 1)
	assert.Nil(t, u.FavAnime[0].AnimeImg)
	require.NotNil(t, u.FavAnime[0].AnimeTtlJp)
}

func TestSubmission_Anime(t *testing.T) {
	img := "x.webp"
	s := UserAnimeSubmission{UUID: 9, AnimeID: 5, AnimeImg: &img, AnimeTtlEn: "Five"}
	assert.Equal(t, UserAnime{AnimeID: 5, AnimeImg: &img, AnimeTtlEn: "Five"}, s.Anime())
}
