package imgtensor

import (
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Channels 모델 입력 이미지의 채널 수 (R, G, B)
const Channels = 3

// Pixels height x width x channel 순서의 float32 픽셀 버퍼
type Pixels struct {
	Height, Width, Channels int
	Data                    []float32
}

// Decode 이미지 디코딩, EXIF 방향 정보 반영
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "Fail to decode image")
	}

	return img, nil
}

// Open 이미지 파일 디코딩
func Open(file string) (image.Image, error) {
	img, err := imaging.Open(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to open image: %s", file)
	}

	return img, nil
}

// Save 확장자에 맞는 포맷으로 이미지 저장
func Save(img image.Image, file string) error {
	if err := imaging.Save(img, file); err != nil {
		return errors.Wrapf(err, "Fail to save image: %s", file)
	}

	return nil
}

// Shrink 긴 변이 maxDim을 넘는 이미지를 비율을 유지하며 축소
func Shrink(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}

	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}

	return resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Bilinear)
}

// FromImage width x height x channel 이미지를 height x width x channel 버퍼로 변환
func FromImage(img image.Image) *Pixels {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	p := &Pixels{
		Height:   h,
		Width:    w,
		Channels: Channels,
		Data:     make([]float32, h*w*Channels),
	}

	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// premultiply 되지 않은 값을 사용, alpha는 버림
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			p.Data[idx+0] = float32(c.R)
			p.Data[idx+1] = float32(c.G)
			p.Data[idx+2] = float32(c.B)
			idx += Channels
		}
	}

	return p
}

// At (y, x, c) 위치의 값
func (p *Pixels) At(y, x, c int) float32 {
	return p.Data[(y*p.Width+x)*p.Channels+c]
}

// Shape 텐서 shape [height, width, channel]
func (p *Pixels) Shape() []int64 {
	return []int64{int64(p.Height), int64(p.Width), int64(p.Channels)}
}

// Nested tf.NewTensor에 넘길 [height][width][channel] 슬라이스
func (p *Pixels) Nested() [][][]float32 {
	rows := make([][][]float32, p.Height)
	for y := range rows {
		row := make([][]float32, p.Width)
		for x := range row {
			off := (y*p.Width + x) * p.Channels
			row[x] = p.Data[off : off+p.Channels : off+p.Channels]
		}
		rows[y] = row
	}

	return rows
}

// FromBatch [1][height][width][channel] 배치를 픽셀 버퍼로 변환
func FromBatch(batch [][][][]float32) (*Pixels, error) {
	if len(batch) != 1 {
		return nil, errors.Errorf("Expected a batch of one image, got %d", len(batch))
	}

	img := batch[0]
	if len(img) == 0 || len(img[0]) == 0 {
		return nil, errors.New("Empty image")
	}

	h, w, c := len(img), len(img[0]), len(img[0][0])
	p := &Pixels{
		Height:   h,
		Width:    w,
		Channels: c,
		Data:     make([]float32, 0, h*w*c),
	}
	for y := range img {
		if len(img[y]) != w {
			return nil, errors.Errorf("Ragged row %d: %d != %d", y, len(img[y]), w)
		}
		for x := range img[y] {
			if len(img[y][x]) != c {
				return nil, errors.Errorf("Ragged pixel (%d, %d): %d != %d", y, x, len(img[y][x]), c)
			}
			p.Data = append(p.Data, img[y][x]...)
		}
	}

	return p, nil
}

// ToImage 정규화를 되돌려 (value * scale + mean) 이미지로 변환
func (p *Pixels) ToImage(mean, scale float32) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))

	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			var v [Channels]uint8
			for c := 0; c < Channels; c++ {
				// 단일 채널은 gray로 복제
				src := c
				if src >= p.Channels {
					src = p.Channels - 1
				}
				v[c] = clamp(p.At(y, x, src)*scale + mean)
			}
			out.SetNRGBA(x, y, color.NRGBA{R: v[0], G: v[1], B: v[2], A: 255})
		}
	}

	return out
}

func clamp(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
