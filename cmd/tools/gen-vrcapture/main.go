// Command gen-vrcapture generates a sample pcap of VR control packets for
// testing replay.
package main

import (
	"flag"
	"io"
	"log"
	"math"
	"os"
	"time"

	"github.com/banshee-data/teleop.bridge/internal/network"
	"github.com/banshee-data/teleop.bridge/internal/security"
	"github.com/banshee-data/teleop.bridge/internal/translate"
)

func main() {
	output := flag.String("o", "sample.pcap", "output path")
	packets := flag.Int("n", 500, "number of control packets")
	rate := flag.Float64("hz", 50, "packet rate in the capture timeline")
	port := flag.Int("port", 9870, "UDP destination port")
	flag.Parse()

	if err := security.ValidateOutputPath(*output); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}
	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	if err := writeCapture(f, *packets, *rate, uint16(*port), time.Now()); err != nil {
		f.Close()
		log.Fatalf("failed to write capture: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("failed to close %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s (%d packets)", *output, *packets)
}

// writeCapture writes n packets of a joystick sweeping a circle: forward and
// lateral follow sine and cosine, angular ramps slowly.
func writeCapture(w io.Writer, n int, hz float64, port uint16, start time.Time) error {
	pw, err := network.NewPCAPWriter(w)
	if err != nil {
		return err
	}
	step := time.Duration(float64(time.Second) / hz)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * float64(i) / 100
		ts := start.Add(time.Duration(i) * step)
		pkt := translate.EncodeControlPacket(translate.ControlPacket{
			LinearX:   float32(math.Sin(phase)),
			LinearY:   float32(math.Cos(phase)),
			Angular:   float32(math.Sin(phase / 4)),
			Timestamp: uint64(ts.UnixMilli()),
		})
		if err := pw.WriteDatagram(ts, port, pkt); err != nil {
			return err
		}
	}
	return nil
}
