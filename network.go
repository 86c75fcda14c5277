package mvnclite

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// files making up a network directory
const (
	GraphFile     = "graph"
	LabelsFile    = "categories.txt"
	StatFile      = "stat.txt"
	InputSizeFile = "inputsize.txt"
	ChecksumFile  = "graph.sha256"
)

const (
	// MaxCategories is the maximum number of labels read from categories.txt
	MaxCategories = 1000
	// labelsHeader is the optional header line of categories.txt
	labelsHeader = "classes"
)

// Network is the content of a network directory read from disk
type Network struct {
	// Path is the network directory
	Path string
	// Graph is the compiled graph uploaded to the device
	Graph []byte
	// Labels are the category names in output order
	Labels []string
	// Profile is the input normalisation
	Profile NormalizationProfile
	// InputSize is the side length of the square input tensor
	InputSize int
}

// LoadNetwork reads the graph, labels, normalisation stats and input size
// from the network directory at path.  Any missing or malformed file fails
// with DataLoadFailed.
func LoadNetwork(path string) (*Network, error) {

	const op = "LoadNetwork"

	if path == "" {
		return nil, errorf(op, InvalidInput, "", "no network path given")
	}

	graph, err := loadGraph(filepath.Join(path, GraphFile))

	if err != nil {
		return nil, newError(op, DataLoadFailed, path, err)
	}

	labels, err := LoadLabels(filepath.Join(path, LabelsFile))

	if err != nil {
		return nil, newError(op, DataLoadFailed, path, err)
	}

	if len(labels) == 0 {
		return nil, errorf(op, DataLoadFailed, path, "no categories found in %s", LabelsFile)
	}

	mean, stddev, err := loadStats(filepath.Join(path, StatFile))

	if err != nil {
		return nil, newError(op, DataLoadFailed, path, err)
	}

	profile, err := NewNormalizationProfile(mean, stddev)

	if err != nil {
		return nil, newError(op, DataLoadFailed, path, err)
	}

	size, err := loadInputSize(filepath.Join(path, InputSizeFile))

	if err != nil {
		return nil, newError(op, DataLoadFailed, path, err)
	}

	return &Network{
		Path:      path,
		Graph:     graph,
		Labels:    labels,
		Profile:   profile,
		InputSize: size,
	}, nil
}

// loadGraph reads the compiled graph file, which must not be empty
func loadGraph(file string) ([]byte, error) {

	data, err := os.ReadFile(file)

	if err != nil {
		return nil, fmt.Errorf("cannot read graph file: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("graph file %s is empty", file)
	}

	return data, nil
}

// LoadLabels reads the category labels from the given text file, one label
// per line.  Lines are kept as written, including empty ones, so label i is
// always output i.  Only a header line of "classes" (any case) is skipped and
// at most MaxCategories labels are read.
func LoadLabels(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.EqualFold(line, labelsHeader) {
			continue
		}

		labels = append(labels, line)

		if len(labels) == MaxCategories {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return labels, nil
}

// loadStats reads the three channel means followed by the three channel
// standard deviations from stat.txt
func loadStats(file string) (mean, stddev [3]float32, err error) {

	data, err := os.ReadFile(file)

	if err != nil {
		return mean, stddev, fmt.Errorf("error opening stat file: %w", err)
	}

	fields := strings.Fields(string(data))

	if len(fields) < 6 {
		return mean, stddev, fmt.Errorf("%s: mean and stddev not found in file, got %d values", file, len(fields))
	}

	var vals [6]float32

	for i := range vals {
		v, err := strconv.ParseFloat(fields[i], 32)

		if err != nil {
			return mean, stddev, fmt.Errorf("%s: invalid value %q: %w", file, fields[i], err)
		}

		vals[i] = float32(v)
	}

	copy(mean[:], vals[:3])
	copy(stddev[:], vals[3:])

	return mean, stddev, nil
}

// loadInputSize reads the square tensor side length from inputsize.txt
func loadInputSize(file string) (int, error) {

	data, err := os.ReadFile(file)

	if err != nil {
		return 0, fmt.Errorf("error opening input size file: %w", err)
	}

	fields := strings.Fields(string(data))

	if len(fields) == 0 {
		return 0, fmt.Errorf("%s: inputsize not found in file", file)
	}

	size, err := strconv.Atoi(fields[0])

	if err != nil {
		return 0, fmt.Errorf("%s: invalid input size %q: %w", file, fields[0], err)
	}

	if size <= 0 {
		return 0, fmt.Errorf("%s: input size %d must be positive", file, size)
	}

	return size, nil
}

// GraphChecksum returns the hex encoded SHA-256 digest of a graph
func GraphChecksum(graph []byte) string {
	sum := sha256.Sum256(graph)
	return hex.EncodeToString(sum[:])
}

// ReadChecksumFile returns the digest stored in the optional graph.sha256
// file of the network directory at path, in sha256sum output format
func ReadChecksumFile(path string) (string, bool) {

	data, err := os.ReadFile(filepath.Join(path, ChecksumFile))

	if err != nil {
		return "", false
	}

	fields := strings.Fields(string(data))

	if len(fields) == 0 {
		return "", false
	}

	return strings.ToLower(fields[0]), true
}
