package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProgram is a fake implementation of teaProgramProvider that records
// every message passed to Send.
type fakeProgram struct {
	msgs chan tea.Msg
}

func newFakeProgram() *fakeProgram {
	return &fakeProgram{
		msgs: make(chan tea.Msg, 100),
	}
}

func (fp *fakeProgram) Send(msg tea.Msg) {
	fp.msgs <- msg
}

// awaitMsg receives one message from the fake program or fails the test.
func awaitMsg(t *testing.T, fp *fakeProgram) tea.Msg {
	t.Helper()

	select {
	case got := <-fp.msgs:
		return got
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for log message")

		return nil
	}
}

// TestTeaLogWriter_Write_Table tests that written log lines arrive at the
// program as [LogMsg] values, byte for byte.
func TestTeaLogWriter_Write_Table(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	writer := NewTeaLogWriter(fp)
	defer writer.Stop()

	testCases := []struct {
		name  string
		input string
	}{
		{"Success_EmptyLine", ""},
		{"Success_ShortLine", "ok"},
		{"Success_KeyValueLine", "level=INFO msg=\"Reading dataset\" dataset=dset-1"},
		{"Success_MultiLine", "read iteration 4\ndataset dset-0\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := writer.Write([]byte(tc.input))
			require.NoError(t, err)
			require.Equal(t, len(tc.input), n)

			assert.Equal(t, LogMsg(tc.input), awaitMsg(t, fp))
		})
	}
}

// TestTeaLogWriter_Stop tests that writes after Stop are silently discarded
// while earlier writes still reach the program.
func TestTeaLogWriter_Stop(t *testing.T) {
	t.Parallel()

	fp := newFakeProgram()
	writer := NewTeaLogWriter(fp)

	_, _ = writer.Write([]byte("before stop"))

	time.Sleep(50 * time.Millisecond)
	writer.Stop()
	time.Sleep(50 * time.Millisecond)

	_, _ = writer.Write([]byte("after stop"))
	_, _ = writer.Write([]byte("also after stop"))

	var delivered []string
drain:
	for {
		select {
		case m := <-fp.msgs:
			if lm, ok := m.(LogMsg); ok {
				delivered = append(delivered, string(lm))
			}
		case <-time.After(300 * time.Millisecond):
			break drain
		}
	}

	assert.Contains(t, delivered, "before stop")
	assert.NotContains(t, delivered, "after stop")
}
