package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/config"
	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/link"
	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/physical"
	pkgio "github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/pkg/io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type (
	transferOptions struct {
		configFile  string
		discipline  string
		windowSize  int
		probability float64
		records     int
		input       string
		output      string
		medium      string
		senderUDP   string
		receiverUDP string
		capture     string
		bitErrors   float64
	}

	transferResult struct {
		records       int
		output        []byte
		senderStats   link.SenderStats
		receiverStats link.ReceiverStats
	}
)

const (
	mediumPipe = "pipe"
	mediumUDP  = "udp"
)

var transferOpts transferOptions

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer a file from a sender to a receiver over a single link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := contextWithCancelOnInterrupt(context.Background())
		defer cancel()
		waitMetrics, err := startMetrics(ctx)
		if err != nil {
			return err
		}
		defer waitMetrics()
		defer cancel()

		conf, err := transferOpts.linkConfig(cmd)
		if err != nil {
			return err
		}
		input, err := readInput(transferOpts.input)
		if err != nil {
			return err
		}
		res, err := runTransfer(ctx, conf, &transferOpts, input)
		if err != nil {
			return err
		}
		if err := writeOutput(transferOpts.output, res.output); err != nil {
			return err
		}

		logrus.
			WithField("records", res.records).
			WithField("verified", bytes.Equal(input, res.output)).
			WithField("frames_sent", res.senderStats.FramesSent).
			WithField("retransmissions", res.senderStats.Retransmissions).
			WithField("acks_received", res.senderStats.AcksReceived).
			WithField("corrupted_acks", res.senderStats.CorruptedAcks).
			WithField("stray_acks", res.senderStats.StrayAcks).
			WithField("frames_received", res.receiverStats.FramesReceived).
			WithField("corrupted_frames", res.receiverStats.CorruptedFrames).
			WithField("acks_sent", res.receiverStats.AcksSent).
			WithField("buffered", res.receiverStats.Buffered).
			Info("transfer finished")
		return nil
	},
}

func init() {
	flags := transferCmd.Flags()
	flags.StringVar(&transferOpts.configFile, "config", "", "yaml link config file, decoded over the defaults")
	flags.StringVar(&transferOpts.discipline, "discipline", link.GoBackN.String(), "gbn or sr")
	flags.IntVar(&transferOpts.windowSize, "window", link.DefaultConfig().WindowSize, "window size")
	flags.Float64Var(&transferOpts.probability, "probability", 0, "probability of corrupting a data frame")
	flags.IntVar(&transferOpts.records, "records", 10, "number of records the input is split into")
	flags.StringVar(&transferOpts.input, "input", "-", "input file, - for stdin")
	flags.StringVar(&transferOpts.output, "output", "-", "output file, - for stdout")
	flags.StringVar(&transferOpts.medium, "medium", mediumPipe, "pipe (in-process) or udp (physical wires)")
	flags.StringVar(&transferOpts.senderUDP, "sender-udp", ":50001", "udp endpoint of the sender wire")
	flags.StringVar(&transferOpts.receiverUDP, "receiver-udp", ":50002", "udp endpoint of the receiver wire")
	flags.StringVar(&transferOpts.capture, "capture", "", "pcapng file capturing the sender wire")
	flags.Float64Var(&transferOpts.bitErrors, "bit-error-probability", 0, "probability of the sender udp wire flipping a bit of a frame")
	rootCmd.AddCommand(transferCmd)
}

// linkConfig builds the link config from the defaults, the config file
// and the flags the user set, in this order.
func (o *transferOptions) linkConfig(cmd *cobra.Command) (link.Config, error) {
	conf := link.DefaultConfig()
	conf.Name = "transfer"
	if o.configFile != "" {
		if err := config.ReadYAML(o.configFile, &conf); err != nil {
			return link.Config{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("discipline") {
		d, err := link.ParseDiscipline(o.discipline)
		if err != nil {
			return link.Config{}, err
		}
		conf.Discipline = d
	}
	if flags.Changed("window") {
		conf.WindowSize = o.windowSize
	}
	if flags.Changed("probability") {
		conf.CorruptionProbability = o.probability
	}
	if err := conf.Validate(); err != nil {
		return link.Config{}, fmt.Errorf("invalid link config: %w", err)
	}
	return conf, nil
}

// newChannels creates the two ends of the link on the chosen medium.
func (o *transferOptions) newChannels(ctx context.Context) (link.Channel, link.Channel, error) {
	switch o.medium {
	case mediumPipe:
		senderCh, receiverCh := link.NewPipe(0)
		return senderCh, receiverCh, nil
	case mediumUDP:
		senderConf := link.WireChannelConfig{
			Medium: physical.FullDuplexUnreliableWireConfig{
				RecvUDPEndpoint: o.senderUDP,
				SendUDPEndpoint: o.receiverUDP,
			},
		}
		senderConf.Medium.MetricLabels.LinkName = "transfer-sender"
		// noise only hits the data direction, acks always arrive intact
		senderConf.Medium.Noise = &physical.NoiseConfig{BitErrorProbability: o.bitErrors}
		if o.capture != "" {
			senderConf.Medium.Capture = &physical.CaptureConfig{Filename: o.capture}
		}
		senderCh, err := link.NewWireChannel(ctx, senderConf)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating sender wire: %w", err)
		}
		receiverConf := link.WireChannelConfig{
			Medium: physical.FullDuplexUnreliableWireConfig{
				RecvUDPEndpoint: o.receiverUDP,
				SendUDPEndpoint: o.senderUDP,
			},
		}
		receiverConf.Medium.MetricLabels.LinkName = "transfer-receiver"
		receiverCh, err := link.NewWireChannel(ctx, receiverConf)
		if err != nil {
			senderCh.Close()
			return nil, nil, fmt.Errorf("error creating receiver wire: %w", err)
		}
		return senderCh, receiverCh, nil
	}
	return nil, nil, fmt.Errorf("unknown medium '%s'", o.medium)
}

func runTransfer(ctx context.Context, conf link.Config, o *transferOptions, input []byte) (*transferResult, error) {
	// split input
	records := link.SplitRecords(input, o.records)
	if len(records) == 0 {
		return nil, link.ErrEmptyRecords
	}
	if n := len(records[0]); n > link.MTU {
		return nil, fmt.Errorf("records of %d bytes exceed the link MTU (%d), use more records", n, link.MTU)
	}

	// create link
	senderCh, receiverCh, err := o.newChannels(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := pkgio.Close(senderCh, receiverCh); err != nil {
			logrus.
				WithError(err).
				Error("error closing channels")
		}
	}()
	sender, err := link.NewSender(senderCh, conf)
	if err != nil {
		return nil, err
	}
	receiver, err := link.NewReceiver(receiverCh, conf)
	if err != nil {
		return nil, err
	}

	// run receiver
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var output [][]byte
	var receiverErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if receiverErr = receiver.WaitForConnection(ctx); receiverErr != nil {
			return
		}
		output, receiverErr = receiver.Receive(ctx)
	}()

	// run sender
	senderErr := sender.WaitForConnection(ctx)
	if senderErr == nil {
		senderErr = sender.Send(ctx, records)
	}
	if senderErr != nil {
		cancel()
	}
	wg.Wait()
	if senderErr != nil {
		return nil, fmt.Errorf("error sending records: %w", senderErr)
	}
	if receiverErr != nil {
		return nil, fmt.Errorf("error receiving records: %w", receiverErr)
	}

	return &transferResult{
		records:       len(records),
		output:        bytes.Join(output, nil),
		senderStats:   sender.Stats(),
		receiverStats: receiver.Stats(),
	}, nil
}

func readInput(file string) ([]byte, error) {
	var b []byte
	var err error
	if file == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	if len(b) == 0 {
		return nil, errors.New("input is empty")
	}
	return b, nil
}

func writeOutput(file string, b []byte) error {
	var err error
	if file == "-" {
		_, err = os.Stdout.Write(b)
	} else {
		err = os.WriteFile(file, b, 0o644)
	}
	if err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	return nil
}
