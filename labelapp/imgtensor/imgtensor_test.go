package imgtensor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 3x2 이미지, 픽셀값은 (R=x, G=y, B=10*x+y)
func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(10*x + y), A: 255})
		}
	}
	return img
}

func TestFromImageLayout(t *testing.T) {
	p := FromImage(testImage())

	assert.Equal(t, 2, p.Height)
	assert.Equal(t, 3, p.Width)
	assert.Equal(t, Channels, p.Channels)
	assert.Equal(t, []int64{2, 3, 3}, p.Shape())
	require.Len(t, p.Data, 2*3*3)

	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			assert.Equal(t, float32(x), p.At(y, x, 0))
			assert.Equal(t, float32(y), p.At(y, x, 1))
			assert.Equal(t, float32(10*x+y), p.At(y, x, 2))
		}
	}
	// channel이 가장 안쪽 차원
	assert.Equal(t, []float32{1, 0, 10}, p.Data[3:6])
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := testImage().SubImage(image.Rect(1, 1, 3, 2))
	p := FromImage(img)

	assert.Equal(t, 1, p.Height)
	assert.Equal(t, 2, p.Width)
	assert.Equal(t, []float32{1, 1, 11, 2, 1, 21}, p.Data)
}

func TestFromImageGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 200})

	p := FromImage(img)
	assert.Equal(t, []float32{200, 200, 200}, p.Data)
}

func TestFromImageTranslucent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})

	p := FromImage(img)
	assert.Equal(t, []float32{200, 100, 50, 10, 20, 30}, p.Data)

	// premultiplied 입력도 원래 채널 값으로 복원
	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.SetRGBA(0, 0, color.RGBA{R: 100, G: 50, B: 0, A: 128})
	assert.Equal(t, []float32{199, 99, 0}, FromImage(rgba).Data)
}

func TestNestedAndBatch(t *testing.T) {
	p := FromImage(testImage())
	nested := p.Nested()

	require.Len(t, nested, 2)
	require.Len(t, nested[0], 3)
	assert.Equal(t, []float32{2, 1, 21}, nested[1][2])

	back, err := FromBatch([][][][]float32{nested})
	require.NoError(t, err)
	assert.Equal(t, p, back)

	_, err = FromBatch(nil)
	assert.Error(t, err)
	_, err = FromBatch([][][][]float32{nested, nested})
	assert.Error(t, err)
	_, err = FromBatch([][][][]float32{{{{1, 2, 3}}, {{1, 2, 3}, {4, 5, 6}}}})
	assert.Error(t, err)
}

func TestToImage(t *testing.T) {
	p := &Pixels{
		Height:   1,
		Width:    3,
		Channels: 3,
		Data:     []float32{-117, 0, 138, -200, 10, 500, 1, 2, 3},
	}

	img := p.ToImage(117, 1)
	assert.Equal(t, color.NRGBA{R: 0, G: 117, B: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 0, G: 127, B: 255, A: 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 118, G: 119, B: 120, A: 255}, img.NRGBAAt(2, 0))

	gray := &Pixels{Height: 1, Width: 1, Channels: 1, Data: []float32{0.5}}
	assert.Equal(t, color.NRGBA{R: 64, G: 64, B: 64, A: 255}, gray.ToImage(0, 128).NRGBAAt(0, 0))
}

func TestShrink(t *testing.T) {
	small := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	assert.True(t, Shrink(small, 0) == image.Image(small))
	assert.True(t, Shrink(small, 40) == image.Image(small))

	shrunk := Shrink(small, 10)
	assert.Equal(t, 10, shrunk.Bounds().Dx())
	assert.Equal(t, 5, shrunk.Bounds().Dy())
}

func TestDecodeAndSave(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	img, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, FromImage(testImage()), FromImage(img))

	file := path.Join(t.TempDir(), "normalized.png")
	require.NoError(t, Save(img, file))

	opened, err := Open(file)
	require.NoError(t, err)
	assert.Equal(t, FromImage(testImage()), FromImage(opened))

	_, err = Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
	_, err = Open(path.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
