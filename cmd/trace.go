// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
	"github.com/syndesi-comm/syndesi-go/pkg/transport"
)

var (
	traceRecordPath string
	traceTUI        bool
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Passively decode frames from a connection",
	Long: `Continuously read and display protocol frames as they arrive, without
driving the request/reply engine. Useful for watching traffic between a host
and a device, or for sniffing a serial tap.

Frames can be recorded to a capture file with --record and replayed later
with 'trace replay'.`,
	RunE: runTrace,
}

var traceReplayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Print the frames of a capture file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceReplay,
}

func init() {
	traceCmd.Flags().StringVar(&traceRecordPath, "record", "", "Record frames to a capture file")
	traceCmd.Flags().BoolVar(&traceTUI, "tui", false, "Interactive full-screen monitor")
	traceCmd.AddCommand(traceReplayCmd)
	rootCmd.AddCommand(traceCmd)
}

// traceSource parses frames off a raw connection.
type traceSource struct {
	conn io.Reader
	peer *sdp.DeviceID
}

func (t *traceSource) next() (*sdp.Frame, error) {
	return sdp.ReadFrame(t.conn, t.peer)
}

func runTrace(cmd *cobra.Command, args []string) error {
	settings, err := sdp.LoadSettings(configPath)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(settings)
	if err != nil {
		return err
	}
	defer conn.Close()

	var recorder *sdp.TraceWriter
	if traceRecordPath != "" {
		file, err := os.Create(traceRecordPath)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %v", err)
		}
		defer file.Close()
		recorder = sdp.NewTraceWriter(file)
	}

	peerText := hostFlag
	if peerText == "" {
		peerText = "0.0.0.0"
	}
	peer, err := sdp.ParseDeviceID(peerText, settings.IPPort())
	if err != nil {
		return err
	}
	source := &traceSource{conn: conn, peer: peer}

	if traceTUI {
		return runMonitorTUI(source, connInfo, recorder)
	}

	fmt.Printf("Syndesi - Frame Trace\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		f, err := source.next()
		if err != nil {
			if errors.Is(err, transport.ErrStreamClosed) || errors.Is(err, io.EOF) {
				fmt.Println("Connection closed")
				return nil
			}
			return err
		}
		fmt.Print(sdp.FormatFrame(f))
		if recorder != nil {
			if err := recorder.Record(f); err != nil {
				return fmt.Errorf("failed to record frame: %v", err)
			}
		}
	}
}

func runTraceReplay(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	records, err := sdp.ReadTraceRecords(file)
	if err != nil {
		return fmt.Errorf("failed to read capture: %v", err)
	}

	for _, rec := range records {
		ts := rec.Timestamp.Format("15:04:05.000")
		if rec.Error {
			fmt.Printf("[%s] %s ERROR %s (0x%04X)\n", ts, rec.Source, sdp.ErrorCode(rec.Code), rec.Code)
			continue
		}
		name := sdp.CommandName(sdp.CommandID(rec.Command))
		fmt.Printf("[%s] %s %s (0x%04X) len=%d\n", ts, rec.Source, name, rec.Command, len(rec.Payload))
	}
	fmt.Printf("\n%d frames\n", len(records))
	return nil
}

// frameMsg delivers one parsed frame to the TUI.
type frameMsg struct {
	frame *sdp.Frame
}

// readErrMsg ends the TUI when the connection drops.
type readErrMsg struct {
	err error
}

func runMonitorTUI(source *traceSource, connInfo string, recorder *sdp.TraceWriter) error {
	frames := make(chan tea.Msg, 16)
	go func() {
		for {
			f, err := source.next()
			if err != nil {
				frames <- readErrMsg{err: err}
				return
			}
			if recorder != nil {
				if err := recorder.Record(f); err != nil {
					frames <- readErrMsg{err: fmt.Errorf("failed to record frame: %v", err)}
					return
				}
			}
			frames <- frameMsg{frame: f}
		}
	}()

	m := initialMonitorModel(connInfo, frames)
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}

func waitForFrame(frames chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-frames
	}
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}
