package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/swdee/go-mvnclite"
)

// NetworkSpec describes a network directory written by WriteNetwork
type NetworkSpec struct {
	// Graph is the graph file content.  When empty a simulated graph with one
	// output per label is written.
	Graph []byte
	// Labels are written to categories.txt below the "classes" header
	Labels []string
	// Mean and StdDev are written to stat.txt on the 0-1 scale
	Mean   [3]float32
	StdDev [3]float32
	// InputSize is written to inputsize.txt
	InputSize int
	// Checksum writes graph.sha256 when set
	Checksum bool
}

// AgeNetwork is a network shaped like the age classifier
func AgeNetwork() NetworkSpec {
	return NetworkSpec{
		Graph:     []byte(outputsHeader + "8\nsimulated age graph\n"),
		Labels:    []string{"0-2", "4-6", "8-12", "15-20", "25-32", "38-43", "48-53", "60-100"},
		Mean:      [3]float32{0.4076, 0.4578, 0.4850},
		StdDev:    [3]float32{0.0042, 0.0042, 0.0042},
		InputSize: 227,
	}
}

// GenderNetwork is a network shaped like the gender classifier
func GenderNetwork() NetworkSpec {
	return NetworkSpec{
		Graph:     []byte(outputsHeader + "2\nsimulated gender graph\n"),
		Labels:    []string{"Male", "Female"},
		Mean:      [3]float32{0.4076, 0.4578, 0.4850},
		StdDev:    [3]float32{0.0042, 0.0042, 0.0042},
		InputSize: 227,
	}
}

// WriteNetwork creates a network directory at dir laid out for
// mvnclite.LoadNetwork
func WriteNetwork(dir string, spec NetworkSpec) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	graph := spec.Graph

	if len(graph) == 0 {
		graph = fmt.Appendf(nil, "%s%d\nsimulated graph\n", outputsHeader, len(spec.Labels))
	}

	files := map[string]string{
		mvnclite.GraphFile:     string(graph),
		mvnclite.LabelsFile:    "classes\n" + strings.Join(spec.Labels, "\n") + "\n",
		mvnclite.StatFile:      formatStats(spec.Mean, spec.StdDev),
		mvnclite.InputSizeFile: fmt.Sprintf("%d\n", spec.InputSize),
	}

	if spec.Checksum {
		files[mvnclite.ChecksumFile] = mvnclite.GraphChecksum(graph) + "  graph\n"
	}

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// formatStats writes the means on one line and the standard deviations on
// the next
func formatStats(mean, std [3]float32) string {
	return fmt.Sprintf("%g %g %g\n%g %g %g\n",
		mean[0], mean[1], mean[2], std[0], std[1], std[2])
}
