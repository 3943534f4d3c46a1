package inference

import (
	"image"

	"github.com/harrison-roh/tensorflow-label-image/labelapp/config"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/imgtensor"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/ranking"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/resource"
	"github.com/pkg/errors"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"
	"github.com/tensorflow/tensorflow/tensorflow/go/op"
	"k8s.io/klog/v2"
)

// Inference 이미지 추론 모델
//
// New 이후 변경되지 않으며, tf.Session은 여러 goroutine에서 동시에 사용 가능
type Inference struct {
	cfg    config.Model
	labels []string

	graph   *tf.Graph
	session *tf.Session
	input   tf.Output
	output  tf.Output

	norm *normalizer
}

// 입력 이미지를 모델 입력 형태로 정규화하는 그래프
type normalizer struct {
	graph   *tf.Graph
	session *tf.Session
	input   tf.Output
	output  tf.Output
}

// Result 추론 결과
type Result struct {
	Labels     []ranking.InferLabel
	Normalized *imgtensor.Pixels

	mean, scale float32
}

// NormalizedImage 모델에 입력된 이미지 (정규화 해제)
func (r *Result) NormalizedImage() *image.NRGBA {
	return r.Normalized.ToImage(r.mean, r.scale)
}

func newNormalizer(height, width int32, mean, scale float32) (*normalizer, error) {
	scope := op.NewScope()
	input := op.Placeholder(scope, tf.Float, op.PlaceholderShape(tf.MakeShape(-1, -1, imgtensor.Channels)))

	output := op.Div(scope,
		op.Sub(scope,
			// 이중선형보간법을 이용하여 이미지를 height x width 크기로 리사이징
			op.ResizeBilinear(scope,
				// 단일 이미지를 포함하는 배치 작업 생성
				op.ExpandDims(scope,
					input,
					op.Const(scope.SubScope("make_batch"), int32(0))),
				op.Const(scope.SubScope("size"), []int32{height, width})),
			op.Const(scope.SubScope("mean"), mean)),
		op.Const(scope.SubScope("scale"), scale))

	graph, err := scope.Finalize()
	if err != nil {
		return nil, errors.Wrap(err, "Fail to build normalize graph")
	}

	session, err := tf.NewSession(graph, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Fail to make normalize session")
	}

	return &normalizer{
		graph:   graph,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

func (n *normalizer) run(p *imgtensor.Pixels) (*tf.Tensor, error) {
	imageTensor, err := tf.NewTensor(p.Nested())
	if err != nil {
		return nil, err
	}

	norms, err := n.session.Run(
		map[tf.Output]*tf.Tensor{
			n.input: imageTensor,
		},
		[]tf.Output{
			n.output,
		},
		nil,
	)
	if err != nil {
		return nil, errors.Wrap(err, "Fail to normalize image")
	}

	return norms[0], nil
}

func (n *normalizer) close() error {
	return n.session.Close()
}

// New 로드된 리소스로 추론 모델 생성
func New(b *resource.Bundle) (*Inference, error) {
	cfg := b.Config

	graph := tf.NewGraph()
	if err := graph.Import(b.GraphDef, ""); err != nil {
		return nil, errors.Wrap(err, "Fail to import model")
	}

	inputOp := graph.Operation(cfg.InputOperationName)
	if inputOp == nil {
		return nil, errors.Errorf("No such input operation: %s", cfg.InputOperationName)
	}
	outputOp := graph.Operation(cfg.OutputOperationName)
	if outputOp == nil {
		return nil, errors.Errorf("No such output operation: %s", cfg.OutputOperationName)
	}

	session, err := tf.NewSession(graph, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Fail to make model session")
	}

	norm, err := newNormalizer(cfg.Height(), cfg.Width(), cfg.Mean, cfg.Scale)
	if err != nil {
		session.Close()
		return nil, err
	}

	klog.Infof("Model successfully loaded: %s (%d labels)", cfg.Name, len(b.Labels))

	return &Inference{
		cfg:     cfg,
		labels:  b.Labels,
		graph:   graph,
		session: session,
		input:   inputOp.Output(0),
		output:  outputOp.Output(0),
		norm:    norm,
	}, nil
}

// Load 모델 디렉토리에서 설정과 리소스를 읽어 추론 모델 생성
func Load(dir string) (*Inference, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	b, err := resource.Load(cfg)
	if err != nil {
		return nil, err
	}

	return New(b)
}

func (i *Inference) classify(normalized *tf.Tensor) ([]float32, error) {
	results, err := i.session.Run(
		map[tf.Output]*tf.Tensor{
			i.input: normalized,
		},
		[]tf.Output{
			i.output,
		},
		nil,
	)
	if err != nil {
		return nil, errors.Wrap(err, "Fail to run model")
	}

	return probabilities(results[0])
}

func probabilities(result *tf.Tensor) ([]float32, error) {
	shape := result.Shape()
	if len(shape) != 2 || shape[0] != 1 {
		return nil, errors.Errorf(
			"Expected model to produce a [1 N] shaped tensor where N is the number of labels, instead it produced one with shape %v",
			shape)
	}

	probs, ok := result.Value().([][]float32)
	if !ok {
		return nil, errors.Errorf("Unexpected output type: %v", result.DataType())
	}

	return probs[0], nil
}

// Run 이미지를 정규화하여 추론하고 minPercent(%) 이상의 레이블을 반환
func (i *Inference) Run(img image.Image, minPercent float64) (*Result, error) {
	normTensor, err := i.norm.run(imgtensor.FromImage(img))
	if err != nil {
		return nil, err
	}

	batch, ok := normTensor.Value().([][][][]float32)
	if !ok {
		return nil, errors.Errorf("Unexpected normalized image type: %v", normTensor.DataType())
	}
	normalized, err := imgtensor.FromBatch(batch)
	if err != nil {
		return nil, err
	}

	probs, err := i.classify(normTensor)
	if err != nil {
		return nil, err
	}

	infers, err := ranking.Rank(probs, i.labels, minPercent)
	if err != nil {
		return nil, err
	}

	return &Result{
		Labels:     infers,
		Normalized: normalized,
		mean:       i.cfg.Mean,
		scale:      i.cfg.Scale,
	}, nil
}

// Label 이미지 레이블 추론
func (i *Inference) Label(img image.Image, minPercent float64) ([]ranking.InferLabel, error) {
	r, err := i.Run(img, minPercent)
	if err != nil {
		return nil, err
	}

	return r.Labels, nil
}

// Info 추론 모델 정보 반환
func (i *Inference) Info() map[string]interface{} {
	l := 10
	if l > len(i.labels) {
		l = len(i.labels)
	}
	labels := make([]string, l)
	copy(labels, i.labels)
	if len(i.labels) > l {
		labels = append(labels, "...")
	}

	return map[string]interface{}{
		"model":          i.cfg.Name,
		"numberOfLabels": len(i.labels),
		"inputShape":     i.cfg.InputShape,
		"mean":           i.cfg.Mean,
		"scale":          i.cfg.Scale,
		"inputOperator":  i.cfg.InputOperationName,
		"outputOperator": i.cfg.OutputOperationName,
		"description":    i.cfg.Description,
		"labels":         labels,
	}
}

// Destroy 추론 모델 해제
func (i *Inference) Destroy() {
	if err := i.norm.close(); err != nil {
		klog.Errorf("Fail to close normalize session: %v", err)
	}
	if err := i.session.Close(); err != nil {
		klog.Errorf("Fail to close model session: %v", err)
	}
	klog.Infof("Model %s closed", i.cfg.Name)
}
