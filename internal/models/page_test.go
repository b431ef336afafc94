package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBoxGeometry(t *testing.T) {
	a := BBox{X0: 10, Y0: 20, X1: 50, Y1: 40}
	b := BBox{X0: 30, Y0: 5, X1: 90, Y1: 35}

	assert.Equal(t, BBox{X0: 10, Y0: 5, X1: 90, Y1: 40}, a.Union(b))
	assert.Equal(t, BBox{X0: 0, Y0: 10, X1: 60, Y1: 50}, a.Pad(10))
	assert.Equal(t, BBox{X0: 0, Y0: 0, X1: 55, Y1: 30}, BBox{X0: -5, Y0: -1, X1: 70, Y1: 30}.Clamp(55, 80))
	assert.Equal(t, BBox{X0: 20, Y0: 40, X1: 100, Y1: 80}, a.Scale(2))
	assert.Equal(t, 40.0, a.Width())
	assert.True(t, BBox{X0: 5, Y0: 5, X1: 5, Y1: 9}.Empty())
}

func TestSpanFlags(t *testing.T) {
	assert.True(t, (FlagBold | FlagItalic).Bold())
	assert.False(t, FlagItalic.Bold())
}

func TestArticleJSONEncodesCropAsBase64(t *testing.T) {
	a := Article{ArticleID: "job_1", CropImage: []byte{0xff, 0xd8, 0xff}, BBox: BBox{X1: 1}}
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "/9j/", raw["crop_image_base64"])
	assert.NotContains(t, raw, "BBox")
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobProcessing.Terminal())
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
}
