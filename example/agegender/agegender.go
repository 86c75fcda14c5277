package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/swdee/go-mvnclite"
	"github.com/swdee/go-mvnclite/internal/imageio"
	"github.com/swdee/go-mvnclite/mvnc"
	"github.com/swdee/go-mvnclite/sim"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	ageDir := flag.String("a", "../data/network/Age", "Age network directory")
	genderDir := flag.String("g", "../data/network/Gender", "Gender network directory")
	imgFiles := flag.String("i", "../data/face_227x227.png", "Comma separated face images to classify")
	simulate := flag.Bool("s", false, "Use a simulated device")
	flag.Parse()

	var drv mvnclite.Driver = mvnc.New()

	if *simulate {
		drv = sim.New()

		// stand in networks for when the NCSDK downloads are not present
		tmp, err := os.MkdirTemp("", "agegender")

		if err != nil {
			log.Fatal("Error creating temp dir: ", err)
		}

		defer os.RemoveAll(tmp)

		*ageDir = simNetwork(*ageDir, filepath.Join(tmp, "Age"), sim.AgeNetwork())
		*genderDir = simNetwork(*genderDir, filepath.Join(tmp, "Gender"), sim.GenderNetwork())
	}

	// open the first attached device
	sess, err := mvnclite.Open(mvnclite.Config{
		Driver:         drv,
		DeviceLogLevel: mvnclite.DefaultDeviceLogLevel,
	})

	if err != nil {
		log.Fatal("Error opening device: ", err)
	}

	images := strings.Split(*imgFiles, ",")

	for _, dir := range []string{*ageDir, *genderDir} {
		classify(sess, dir, images)
	}

	// close device and release resources
	err = sess.Close(true)

	if err != nil {
		log.Fatal("Error closing device: ", err)
	}

	log.Println("done")
}

// simNetwork returns dir when it exists, otherwise writes spec to tmpDir and
// returns that
func simNetwork(dir, tmpDir string, spec sim.NetworkSpec) string {

	if _, err := os.Stat(dir); err == nil {
		return dir
	}

	if err := sim.WriteNetwork(tmpDir, spec); err != nil {
		log.Fatal("Error writing simulated network: ", err)
	}

	return tmpDir
}

func classify(sess *mvnclite.Session, dir string, images []string) {

	err := sess.UploadNetwork(dir)

	if err != nil {
		log.Fatal("Error uploading network: ", err)
	}

	// optional querying of the loaded network.  not necessary for production
	// inference code
	optionalQueries(sess)

	for _, file := range images {

		// the network expects images already cropped to its input size
		img, err := imageio.Load(file, sess.InputSize(), imageio.FitNone)

		if err != nil {
			log.Fatal("Error loading image: ", err)
		}

		res, err := sess.Classify(img)

		if err != nil {
			log.Printf("Inference failed for image %s: %v\n", file, err)
			continue
		}

		log.Printf(" --- %s ---\n", file)
		log.Printf("convertImage(): %s\n", res.ConvertTime)
		log.Printf("runInference(): %s\n", res.InferenceTime)

		for _, next := range res.Classification {
			log.Printf("%3d: %-10s %8.6f\n", next.LabelIndex, next.Label, next.Probability)
		}
	}

	err = sess.UnloadNetwork()

	if err != nil {
		log.Fatal("Error unloading network: ", err)
	}
}

func optionalQueries(sess *mvnclite.Session) {

	var b strings.Builder

	if err := sess.Query(&b); err != nil {
		log.Fatal("Error querying session: ", err)
	}

	fmt.Print(b.String())
}
