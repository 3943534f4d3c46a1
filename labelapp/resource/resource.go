package resource

import (
	"bufio"
	"io"
	"io/ioutil"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/config"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Bundle 추론에 필요한 모델 리소스
type Bundle struct {
	Config   config.Model
	GraphDef []byte
	Labels   []string
}

// LoadGraphDef 직렬화된 모델 그래프 로드
func LoadGraphDef(file string) ([]byte, error) {
	graphDef, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to read model: %s", file)
	}
	if len(graphDef) == 0 {
		return nil, errors.Errorf("Empty model: %s", file)
	}
	klog.Infof("Reading %s of the TensorFlow model %s", humanize.Bytes(uint64(len(graphDef))), file)

	return graphDef, nil
}

// LoadLabels 레이블 파일 로드, 한 줄에 하나의 레이블
func LoadLabels(file string) ([]string, error) {
	fp, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to open label: %s", file)
	}
	defer fp.Close()

	labels, err := ReadLabels(fp)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to read label: %s", file)
	}

	return labels, nil
}

// ReadLabels r에서 레이블 목록을 읽음
func ReadLabels(r io.Reader) ([]string, error) {
	var labels []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, errors.New("No labels")
	}

	return labels, nil
}

// Load 모델 그래프와 레이블을 함께 로드
func Load(cfg config.Model) (*Bundle, error) {
	graphDef, err := LoadGraphDef(cfg.GraphPath())
	if err != nil {
		return nil, err
	}

	labels, err := LoadLabels(cfg.LabelsPath())
	if err != nil {
		return nil, err
	}
	klog.Infof("Loaded GraphDef of %d bytes and %d labels", len(graphDef), len(labels))

	return &Bundle{
		Config:   cfg,
		GraphDef: graphDef,
		Labels:   labels,
	}, nil
}
