/*
go-mvnclite provides Go language bindings for the Intel Movidius Neural Compute
Stick through the NCSDK v1 C API (libmvnc), and the pipeline needed to classify
images with it: half precision preprocessing, a Session managing the device and
graph lifecycle, top-k ranking of the results and device telemetry.

The Session only ever holds one device and one loaded graph.  A typical run is

	sess, err := mvnclite.Open(mvnclite.Config{Driver: mvnc.New()})
	err = sess.UploadNetwork("./network/Age")
	res, err := sess.Classify(img)
	err = sess.UnloadNetwork()
	err = sess.Close(true)

The vendor runtime is reached through the Driver interface.  Package mvnc
implements it with cgo against libmvnc, package sim implements it in software
for testing and for running without a device attached.

A network directory holds the compiled graph together with its metadata:

	graph           compiled graph file
	categories.txt  one label per line, optional "classes" header
	stat.txt        channel means on the first line, standard deviations on the second
	inputsize.txt   side length of the square input image
	graph.sha256    optional known good digest of graph
*/
package mvnclite
