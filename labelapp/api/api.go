package api

import (
	"bytes"
	"errors"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/constants"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/data/db"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/imgtensor"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/ranking"
	"k8s.io/klog/v2"
)

// Labeler 이미지 레이블 추론기
type Labeler interface {
	Label(img image.Image, minPercent float64) ([]ranking.InferLabel, error)
	Info() map[string]interface{}
}

// Recorder 추론 기록 저장소
type Recorder interface {
	Record(model, imageName string, minPercent float64, infers []ranking.InferLabel) (string, error)
	List(limit int) ([]db.Item, error)
}

// APIs api 핸들러
type APIs struct {
	L Labeler
	// nil이면 기록하지 않음
	M Recorder

	// 업로드 이미지 긴 변의 최대 크기, 0이면 제한 없음
	MaxDim int
}

// NewRouter api 라우팅 설정
func NewRouter(a *APIs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = 8 << 20

	r.GET("/model", a.ShowModel)
	r.POST("/label", a.LabelImage)
	r.GET("/history", a.ListHistory)

	return r
}

// ShowModel 추론 모델 정보 반환
func (a *APIs) ShowModel(c *gin.Context) {
	c.JSON(http.StatusOK, a.L.Info())
}

// LabelImage 업로드 된 이미지의 레이블 추론
func (a *APIs) LabelImage(c *gin.Context) {
	minPercent, err := floatParam(c, "min", constants.DefaultMinPercent)
	if err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}
	if err := ranking.ValidatePercent(minPercent); err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}

	k, err := intParam(c, "k", constants.DefaultTopK)
	if err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, file)
	if err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}

	img, err := imgtensor.Decode(&buf)
	if err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}
	img = imgtensor.Shrink(img, a.MaxDim)

	infers, err := a.L.Label(img, minPercent)
	if err != nil {
		Error(c, http.StatusInternalServerError, err)
		return
	}
	infers = ranking.TopK(infers, k)

	res := gin.H{
		"image":      header.Filename,
		"bytes":      n,
		"minPercent": minPercent,
		"labels":     infers,
		"output":     ranking.Format(infers),
	}
	if len(infers) > 0 {
		res["top label"] = infers[0].Label
		res["top probability"] = infers[0].Prob
	}

	if a.M != nil {
		model, _ := a.L.Info()["model"].(string)
		if id, err := a.M.Record(model, header.Filename, minPercent, infers); err != nil {
			klog.Errorf("Fail to record result: %v", err)
		} else {
			res["id"] = id
		}
	}

	c.JSON(http.StatusOK, res)
}

// ListHistory 최근 추론 기록 반환
func (a *APIs) ListHistory(c *gin.Context) {
	if a.M == nil {
		Error(c, http.StatusNotFound, errors.New("History is not enabled"))
		return
	}

	limit, err := intParam(c, "limit", 0)
	if err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}

	items, err := a.M.List(limit)
	if err != nil {
		Error(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": items,
	})
}

func floatParam(c *gin.Context, key string, def float64) (float64, error) {
	v, ok := param(c, key)
	if !ok {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func intParam(c *gin.Context, key string, def int) (int, error) {
	v, ok := param(c, key)
	if !ok {
		return def, nil
	}
	return strconv.Atoi(v)
}

// form 값 우선, 없으면 query
func param(c *gin.Context, key string) (string, bool) {
	if v, ok := c.GetPostForm(key); ok && v != "" {
		return v, true
	}
	if v, ok := c.GetQuery(key); ok && v != "" {
		return v, true
	}
	return "", false
}

// HTTPError api 에러 메시지
type HTTPError struct {
	Error string `json:"error"`
}

// Error api 에러를 담은 json 응답 생성
func Error(c *gin.Context, status int, err error) {
	c.JSON(status, HTTPError{
		Error: err.Error(),
	})
}
