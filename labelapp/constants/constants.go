package constants

const (
	DefaultModelName string = "inception5h"

	ModelsPath string = "tensorflow_models/inception5h"
	ConfigFile string = "config.yaml"

	GraphFile  string = "tensorflow_inception_graph.pb"
	LabelsFile string = "imagenet_comp_graph_label_strings.txt"

	InputOperationName  string = "input"
	OutputOperationName string = "output"

	InputHeight int32   = 224
	InputWidth  int32   = 224
	InputMean   float32 = 117
	InputScale  float32 = 1

	DefaultMinPercent float64 = 1
	DefaultTopK       int     = 5

	ServeAddr string = ":18080"
)
