package transport

import (
	"bytes"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestConn_ReceiveFrameReadsExactlyFrameSize(t *testing.T) {
	port := NewTestablePort()
	conn := NewConn(port, 4)

	port.AddReadData([]byte{1, 2})
	port.AddReadData([]byte{3, 4, 5, 6, 7, 8})

	first, err := conn.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame failed: %v", err)
	}
	if !bytes.Equal(first, []byte{1, 2, 3, 4}) {
		t.Errorf("first frame = %v", first)
	}
	second, err := conn.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame failed: %v", err)
	}
	if !bytes.Equal(second, []byte{5, 6, 7, 8}) {
		t.Errorf("second frame = %v", second)
	}
}

func TestConn_DefaultFrameSize(t *testing.T) {
	if got := NewConn(NewTestablePort(), 0).FrameSize(); got != DefaultFrameSize {
		t.Errorf("FrameSize() = %d, want %d", got, DefaultFrameSize)
	}
}

func TestConn_CloseInterruptsReceive(t *testing.T) {
	port := NewTestablePort()
	conn := NewConn(port, 8)

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.ReceiveFrame()
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := conn.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("ReceiveFrame error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReceiveFrame did not return after Close")
	}
	if !port.Closed() {
		t.Error("port not closed")
	}
	if err := conn.Send([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestConn_ReadErrorIsWrapped(t *testing.T) {
	port := NewTestablePort()
	conn := NewConn(port, 8)
	sentinel := errors.New("link reset")
	port.FailNextRead(sentinel)

	_, err := conn.ReceiveFrame()
	if !errors.Is(err, sentinel) {
		t.Fatalf("ReceiveFrame error = %v, want wrapped %v", err, sentinel)
	}
}

func TestConn_Send(t *testing.T) {
	port := NewTestablePort()
	conn := NewConn(port, 8)

	if err := conn.Send([]byte{0x80}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	port.ShortWrite = true
	if err := conn.Send([]byte{1, 2, 3}); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("short write error = %v, want ErrWriteFailed", err)
	}
	port.WriteError = errors.New("broken pipe")
	if err := conn.Send([]byte{1}); err == nil {
		t.Error("expected write error")
	}

	writes := port.Writes()
	if len(writes) != 2 || !bytes.Equal(writes[0], []byte{0x80}) {
		t.Errorf("writes = %v", writes)
	}
}

func TestOpen_UnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robocup")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	port, err := Open(Options{Network: NetworkUnix, Address: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	server := <-accepted
	defer server.Close()
	if _, err := server.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	frame, err := NewConn(port, 4).ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame failed: %v", err)
	}
	if !bytes.Equal(frame, []byte{1, 2, 3, 4}) {
		t.Errorf("frame = %v", frame)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(Options{Network: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown transport")
	}
	if _, err := Open(Options{Network: NetworkSerial}); err == nil {
		t.Error("expected error for serial without device")
	}
	if _, err := Open(Options{Network: NetworkUnix, Address: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("expected error for missing socket")
	}
}

func TestSimulatedRobot(t *testing.T) {
	robot := NewSimulatedRobot([]byte{9, 8, 7}, time.Millisecond)
	conn := NewConn(robot, 3)

	for i := 0; i < 3; i++ {
		frame, err := conn.ReceiveFrame()
		if err != nil {
			t.Fatalf("ReceiveFrame %d failed: %v", i, err)
		}
		if !bytes.Equal(frame, []byte{9, 8, 7}) {
			t.Fatalf("frame %d = %v", i, frame)
		}
		if err := conn.Send([]byte{byte(i)}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	last, n := robot.LastCommand()
	if n != 3 || !bytes.Equal(last, []byte{2}) {
		t.Errorf("LastCommand() = %v, %d", last, n)
	}

	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := robot.Read(make([]byte, 1)); err == nil {
		t.Error("expected read error after Close")
	}
}
