package config

import (
	"io/ioutil"
	"os"
	"path"

	"github.com/harrison-roh/tensorflow-label-image/labelapp/constants"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"k8s.io/klog/v2"
)

// Model 추론 모델 설정정보 (config.yaml)
type Model struct {
	Name                string  `yaml:"name"`
	GraphFile           string  `yaml:"graphFile"`
	LabelsFile          string  `yaml:"labelsFile"`
	InputOperationName  string  `yaml:"inputOperationName"`
	OutputOperationName string  `yaml:"outputOperationName"`
	InputShape          []int32 `yaml:"inputShape"`
	Mean                float32 `yaml:"mean"`
	Scale               float32 `yaml:"scale"`
	Description         string  `yaml:"description"`

	// config.yaml이 위치한 디렉토리, 파일 경로의 기준
	Dir string `yaml:"-"`
}

// Default inception5h 모델의 기본 설정
func Default(dir string) Model {
	return Model{
		Name:                constants.DefaultModelName,
		GraphFile:           constants.GraphFile,
		LabelsFile:          constants.LabelsFile,
		InputOperationName:  constants.InputOperationName,
		OutputOperationName: constants.OutputOperationName,
		InputShape:          []int32{constants.InputHeight, constants.InputWidth},
		Mean:                constants.InputMean,
		Scale:               constants.InputScale,
		Description:         "Inception image recognition model (inception5h)",
		Dir:                 dir,
	}
}

// Load 모델 디렉토리의 config.yaml을 읽음, 파일이 없으면 기본 설정 사용
func Load(dir string) (Model, error) {
	cfg := Default(dir)

	cfgFile := path.Join(dir, constants.ConfigFile)
	cfgBytes, err := ioutil.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			klog.V(1).Infof("No %s in %s, using defaults", constants.ConfigFile, dir)
			return cfg, cfg.Validate()
		}
		return Model{}, errors.Wrapf(err, "Fail to read model config: %s", cfgFile)
	}

	// 파일에 없는 항목은 기본값 유지
	if err := yaml.Unmarshal(cfgBytes, &cfg); err != nil {
		return Model{}, errors.Wrapf(err, "Fail to parse model config: %s", cfgFile)
	}
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return Model{}, errors.Wrapf(err, "Invalid model config: %s", cfgFile)
	}

	return cfg, nil
}

// Validate 설정값 검증
func (m Model) Validate() error {
	if m.GraphFile == "" {
		return errors.New("Empty graph file")
	}
	if m.LabelsFile == "" {
		return errors.New("Empty labels file")
	}
	if m.InputOperationName == "" || m.OutputOperationName == "" {
		return errors.Errorf("Empty operation name (input=%q, output=%q)",
			m.InputOperationName, m.OutputOperationName)
	}
	if len(m.InputShape) != 2 || m.InputShape[0] <= 0 || m.InputShape[1] <= 0 {
		return errors.Errorf("Input shape must be [height, width] with positive values: %v", m.InputShape)
	}
	if m.Scale == 0 {
		return errors.New("Scale must not be zero")
	}

	return nil
}

// GraphPath 모델 그래프 파일 경로
func (m Model) GraphPath() string {
	return resolve(m.Dir, m.GraphFile)
}

// LabelsPath 레이블 파일 경로
func (m Model) LabelsPath() string {
	return resolve(m.Dir, m.LabelsFile)
}

// Height 모델 입력 이미지 높이
func (m Model) Height() int32 {
	return m.InputShape[0]
}

// Width 모델 입력 이미지 너비
func (m Model) Width() int32 {
	return m.InputShape[1]
}

func resolve(dir, file string) string {
	if path.IsAbs(file) {
		return file
	}
	return path.Join(dir, file)
}
