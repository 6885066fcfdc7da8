package seriallink

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/banshee-data/teleop.bridge/internal/testutil"
)

func TestOpen_UsesOpenerAndMode(t *testing.T) {
	port := NewTestableSerialPort()
	var mode *serial.Mode

	link, err := Open("/dev/ttyACM0", PortOptions{BaudRate: 9600}, OpenerFor(port, &mode))
	require.NoError(t, err)
	require.NotNil(t, mode)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, "/dev/ttyACM0", link.Status().Path)
	assert.Equal(t, "9600 8N1", link.Status().Options)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open("", PortOptions{}, nil)
	assert.Error(t, err)

	_, err = Open("/dev/ttyACM0", PortOptions{StopBits: 5}, nil)
	assert.Error(t, err)

	failing := func(string, *serial.Mode) (SerialPorter, error) { return nil, errors.New("busy") }
	_, err = Open("/dev/ttyACM0", PortOptions{}, failing)
	assert.ErrorContains(t, err, "busy")
}

func TestOpen_NonexistentDevice(t *testing.T) {
	_, err := Open("/dev/nonexistent-serial-port-12345", PortOptions{}, nil)
	assert.Error(t, err)
}

func TestLink_Send(t *testing.T) {
	port := NewTestableSerialPort()
	link := NewLink(port, "/dev/null", PortOptions{})

	require.NoError(t, link.Send([]byte{0x23, 0x00, 0x01}))
	require.NoError(t, link.Send([]byte{0x23, 0x00, 0x02}))

	assert.Equal(t, [][]byte{{0x23, 0x00, 0x01}, {0x23, 0x00, 0x02}}, port.Written())
	st := link.Status()
	assert.Equal(t, int64(2), st.Packets)
	assert.Equal(t, int64(6), st.Bytes)
	assert.False(t, st.LastWrite.IsZero())
}

func TestLink_SendErrors(t *testing.T) {
	port := NewTestableSerialPort()
	link := NewLink(port, "/dev/null", PortOptions{})

	port.ShortWrite = true
	err := link.Send([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrWriteFailed)

	port.WriteError = errors.New("device unplugged")
	err = link.Send([]byte{1, 2, 3})
	assert.ErrorContains(t, err, "device unplugged")

	st := link.Status()
	assert.Equal(t, int64(2), st.Errors)
	assert.Equal(t, "device unplugged", st.LastError)
	assert.Zero(t, st.Packets)
}

func TestLink_Close(t *testing.T) {
	port := NewTestableSerialPort()
	link := NewLink(port, "/dev/null", PortOptions{})

	require.NoError(t, link.Close())
	require.NoError(t, link.Close(), "second close is a no-op")
	assert.True(t, port.Closed)
	assert.ErrorIs(t, link.Send([]byte{1}), ErrClosed)
	assert.True(t, link.Status().Closed)
}

func TestLink_ConcurrentSendsAreWholeFrames(t *testing.T) {
	port := NewTestableSerialPort()
	link := NewLink(port, "/dev/null", PortOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(b byte) {
			defer wg.Done()
			frame := []byte{b, b, b, b}
			for j := 0; j < 25; j++ {
				_ = link.Send(frame)
			}
		}(byte(i))
	}
	wg.Wait()

	frames := port.Written()
	require.Len(t, frames, 200)
	for _, f := range frames {
		require.Len(t, f, 4)
		assert.Equal(t, f[0], f[3])
	}
}

func TestLink_AdminRoutes(t *testing.T) {
	port := NewTestableSerialPort()
	link := NewLink(port, "/dev/ttyUSB0", PortOptions{})
	require.NoError(t, link.Send([]byte{1, 2}))

	mux := http.NewServeMux()
	link.AttachAdminRoutes(mux)

	req := testutil.NewDebugRequest(http.MethodGet, "/debug/serial-link")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "/dev/ttyUSB0", st.Path)
	assert.Equal(t, int64(1), st.Packets)
}
