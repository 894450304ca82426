// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

// Frame log entry
type frameLogEntry struct {
	timestamp time.Time
	line      string
	isError   bool
}

type monitorTickMsg time.Time

// monitorModel is the full-screen frame monitor.
type monitorModel struct {
	connInfo      string
	frames        chan tea.Msg
	log           []frameLogEntry
	maxLogEntries int

	totalFrames  int
	errorFrames  int
	commandCount map[sdp.CommandID]int
	lastSecond   int
	frameRate    float64

	width    int
	height   int
	quitting bool
	readErr  error
}

func initialMonitorModel(connInfo string, frames chan tea.Msg) monitorModel {
	return monitorModel{
		connInfo:      connInfo,
		frames:        frames,
		log:           make([]frameLogEntry, 0),
		maxLogEntries: 100,
		commandCount:  make(map[sdp.CommandID]int),
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		waitForFrame(m.frames),
		monitorTickCmd(),
		tea.EnterAltScreen,
	)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.frameRate = float64(m.lastSecond)
		m.lastSecond = 0
		return m, monitorTickCmd()

	case frameMsg:
		m.totalFrames++
		m.lastSecond++
		f := msg.frame
		if f.IsError() {
			m.errorFrames++
			m.addLogEntry(fmt.Sprintf("%s ERROR %s", f.ID(), f.ErrorCode()), true)
		} else {
			line := strings.TrimRight(sdp.FormatFrame(f), "\n")
			if i := strings.Index(line, "\n"); i >= 0 {
				line = line[:i]
			}
			m.addLogEntry(line, false)
			if payload, err := f.PayloadBuffer(); err == nil {
				if data, err := payload.Bytes(); err == nil && len(data) >= sdp.CommandIDSize {
					id := sdp.CommandID(uint16(data[0])<<8 | uint16(data[1]))
					m.commandCount[id]++
				}
			}
		}
		return m, waitForFrame(m.frames)

	case readErrMsg:
		m.readErr = msg.err
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *monitorModel) addLogEntry(line string, isError bool) {
	m.log = append(m.log, frameLogEntry{timestamp: time.Now(), line: line, isError: isError})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		if m.readErr != nil {
			return fmt.Sprintf("Connection lost: %v\n", m.readErr)
		}
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("SYNDESI - FRAME MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Press 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	stats := strings.Builder{}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.totalFrames)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.errorFrames)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.0f frames/s", m.frameRate)),
	))
	for _, id := range sdp.CommandIDs {
		if n := m.commandCount[id]; n > 0 {
			stats.WriteString(fmt.Sprintf("%s %s  ",
				labelStyle.Render(sdp.CommandName(id)+":"), valueStyle.Render(fmt.Sprintf("%d", n))))
		}
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(stats.String(), " \n")))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Recent Frames:"))
	s.WriteString("\n")

	logHeight := m.height - 12
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.log) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.log) == 0 {
		logContent.WriteString(headerStyle.Render("  (no frames yet)"))
	} else {
		for i := startIdx; i < len(m.log); i++ {
			entry := m.log[i]
			if entry.isError {
				logContent.WriteString(errorStyle.Render(entry.line))
			} else {
				logContent.WriteString(entry.line)
			}
			logContent.WriteString("\n")
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(strings.TrimRight(logContent.String(), "\n")))

	return s.String()
}
