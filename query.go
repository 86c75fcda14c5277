package mvnclite

import (
	"fmt"
	"io"
)

// Query writes the device and loaded network details in human readable
// format
func (s *Session) Query(w io.Writer) error {

	if s.dev == nil {
		return errorf("Query", InvalidDevHandle, "", "device is not open")
	}

	fmt.Fprintf(w, "Device: %s, State: %s\n", s.devName, s.State())

	if s.graph == nil {
		fmt.Fprintf(w, "No network loaded\n")
		return nil
	}

	fmt.Fprintf(w, "Network: %s\n", s.networkPath)
	fmt.Fprintf(w, "Graph: %d bytes, sha256=%s\n", len(s.graphData), GraphChecksum(s.graphData))
	fmt.Fprintf(w, "Input tensor: %dx%dx3 FP16\n", s.inputSize, s.inputSize)
	fmt.Fprintf(w, "Mean: [%.4f, %.4f, %.4f], Scale: [%.6f, %.6f, %.6f]\n",
		s.profile.Mean[0], s.profile.Mean[1], s.profile.Mean[2],
		s.profile.InvScale[0], s.profile.InvScale[1], s.profile.InvScale[2])
	fmt.Fprintf(w, "Categories (%d):\n", len(s.labels))

	for i, label := range s.labels {
		fmt.Fprintf(w, "  %3d: %s\n", i, label)
	}

	sum := s.monitor.Summary()

	if sum.Count > 0 {
		fmt.Fprintf(w, "Inferences: %d, mean %.2f ms, max %.2f ms, slow %d, throttled %d\n",
			sum.Count, sum.MeanMillis, sum.MaxMillis, sum.SlowCount, sum.ThrottledCount)
	}

	return nil
}
