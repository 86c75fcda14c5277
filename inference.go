package mvnclite

import (
	"time"

	"github.com/google/uuid"
)

// RunInference submits a half precision tensor, as returned by ConvertImage,
// to the loaded graph and blocks for the raw half precision output.  Failure
// leaves the Session usable for the next inference.
func (s *Session) RunInference(tensor []uint16) ([]uint16, error) {

	const op = "RunInference"

	if s.dev == nil {
		return nil, errorf(op, InvalidDevHandle, "", "cannot run inference on closed device")
	}

	if s.graph == nil {
		return nil, errorf(op, NotAllowedThisTime, "", "no network loaded")
	}

	if want := s.inputSize * s.inputSize * 3; len(tensor) != want {
		return nil, errorf(op, InvalidInput, s.networkPath,
			"tensor holds %d values, expecting %d", len(tensor), want)
	}

	if err := s.graph.LoadTensor(tensor); err != nil {
		return nil, newError(op, LoadTensorError, s.networkPath, err)
	}

	output, err := s.graph.GetResult()

	if err != nil {
		e := newError(op, GetResultError, s.networkPath, err)

		if e.Status == MyriadError {
			// fetch the device's explanation before surfacing the error
			info, derr := s.graph.DebugInfo()

			if derr != nil {
				s.log.Warn("failed getting device debug info", "op", op,
					"network", s.networkPath, "error", derr)
			} else {
				e.Detail = "myriad error: " + info
			}
		}

		return nil, e
	}

	return output, nil
}

// Result is the outcome of classifying one image
type Result struct {
	// ID identifies the request in log output
	ID uuid.UUID
	// Network is the network directory that produced the result
	Network string
	// Classification is the top ranked categories
	Classification ClassificationResult
	// Probabilities is the full dequantised output vector
	Probabilities []float32
	// Telemetry is the device timing and thermal report, nil when it could
	// not be fetched
	Telemetry *Telemetry
	// TelemetryErr is set when fetching telemetry failed, the classification
	// is still valid
	TelemetryErr error
	// ConvertTime is the time spent preprocessing the image
	ConvertTime time.Duration
	// InferenceTime is the wall time of the device round trip
	InferenceTime time.Duration
}

// Classify preprocesses img, runs it through the loaded network and ranks the
// output into the top DefaultTopK categories.  Telemetry failures are
// reported in the Result and never fail the call.
func (s *Session) Classify(img RGBImage) (*Result, error) {

	const op = "Classify"

	res := &Result{
		ID:      uuid.New(),
		Network: s.networkPath,
	}

	start := time.Now()
	tensor, err := s.ConvertImage(img)

	if err != nil {
		return nil, err
	}

	res.ConvertTime = time.Since(start)

	start = time.Now()
	raw, err := s.RunInference(tensor)

	if err != nil {
		s.log.Warn("inference failed", "op", op, "request", res.ID, "network", s.networkPath, "error", err)
		return nil, err
	}

	res.InferenceTime = time.Since(start)

	res.Probabilities = make([]float32, len(raw))
	HalfToFloat32(res.Probabilities, raw, len(raw))
	res.Classification = Rank(res.Probabilities, s.labels, DefaultTopK)

	tel, err := s.monitor.Collect(s.graph, s.dev)

	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Path = s.networkPath
		}

		res.TelemetryErr = err
		s.log.Warn("telemetry unavailable", "op", op, "request", res.ID, "network", s.networkPath, "error", err)

	} else {
		res.Telemetry = &tel
	}

	s.log.Debug("classified image", "op", op, "request", res.ID, "network", s.networkPath,
		"top", res.Classification.String(), "convert", res.ConvertTime, "inference", res.InferenceTime)

	return res, nil
}
